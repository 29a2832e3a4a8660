// Package fixture holds a captured NearBlocks account-transactions page for
// tests and offline runs.
package fixture

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"sputnikScope/internal/model"
)

// Account is the DAO whose feed the embedded page was captured from.
const Account = "testing-astradao.sputnik-dao.near"

//go:embed data/nearblocks_page.json
var nearblocksPage []byte

// Default decodes the embedded page. Each call returns an independent value.
func Default() (model.TxnPage, error) {
	return Parse(bytes.NewReader(nearblocksPage))
}

// Raw returns a copy of the embedded document.
func Raw() []byte {
	out := make([]byte, len(nearblocksPage))
	copy(out, nearblocksPage)
	return out
}

// Load reads a page document from disk.
func Load(path string) (model.TxnPage, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.TxnPage{}, fmt.Errorf("open page: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse decodes a page document.
func Parse(r io.Reader) (model.TxnPage, error) {
	var page model.TxnPage
	if err := json.NewDecoder(r).Decode(&page); err != nil {
		return model.TxnPage{}, fmt.Errorf("decode page: %w", err)
	}
	return page, nil
}
