package devhub

import (
	"fmt"

	"sputnikScope/internal/model"
	"sputnikScope/internal/sputnik"
)

// Decoder decodes DevHub proposal and RFP calls. It plugs into the same
// decoder chain as the Sputnik DAO decoders.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) CanDecode(method string) bool {
	_, ok := methods[method]
	return ok
}

func (d *Decoder) Decode(txn model.TxnRecord, ctx sputnik.DecodeContext) (*model.DAOEvent, error) {
	if !txn.Succeeded() {
		return nil, sputnik.ErrFailedReceipt
	}
	action, ok := txn.FirstAction()
	if !ok {
		return nil, fmt.Errorf("transaction %s has no actions", txn.ID)
	}
	method, _ := action.Method()
	c, err := parseCall(method, action.FunctionCall.Args)
	if err != nil {
		return nil, err
	}
	return sputnik.NewEvent(txn, method, action, c.data()), nil
}
