package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sputnikScope/internal/config"
	"sputnikScope/internal/devhub"
	"sputnikScope/internal/model"
	"sputnikScope/internal/publish"
	"sputnikScope/internal/sputnik"
	"sputnikScope/internal/storage"
)

const publishBatchSize = 100

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	ctx, logger, cleanup, err := startCommand(cfg.Common)
	if err != nil {
		return err
	}
	defer cleanup()

	var producer *publish.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = publish.NewProducer(publish.ProducerConfig{
			Brokers:     cfg.KafkaBrokers,
			TopicPrefix: cfg.KafkaTopicPrefix,
		})
		if err != nil {
			return err
		}
		defer producer.Close()
	}

	decoders := []sputnik.Decoder{sputnik.NewProposalDecoder(), devhub.NewDecoder()}
	decodeCtx := sputnik.DecodeContext{
		Context: ctx,
		Logger:  logger,
	}

	outWriter, err := newJSONLWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := newJSONLWriter(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
	)

	pending := make([]model.DAOEvent, 0, publishBatchSize)
	flush := func() error {
		if producer == nil || len(pending) == 0 {
			return nil
		}
		if err := producer.PublishEvents(ctx, pending); err != nil {
			return fmt.Errorf("publish events: %w", err)
		}
		pending = pending[:0]
		return nil
	}

	var total, decoded, skipped, failed int
	err = storage.ScanTxnRecords(ctx, cfg.In, func(_ int, record model.TxnRecord, err error) error {
		total++
		if err != nil {
			failed++
			writeDecodeError(errWriter, model.DecodeError{TxnID: record.ID, Error: err.Error()})
			return nil
		}

		event, err := sputnik.DecodeRecord(decoders, record, decodeCtx)
		if err != nil {
			if errors.Is(err, sputnik.ErrFailedReceipt) || errors.Is(err, sputnik.ErrUnhandledMethod) {
				skipped++
				return nil
			}
			failed++
			writeDecodeError(errWriter, decodeErrorFromRecord(record, err))
			return nil
		}

		if err := outWriter.Write(event); err != nil {
			return err
		}
		decoded++

		if producer != nil {
			pending = append(pending, *event)
			if len(pending) >= publishBatchSize {
				return flush()
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Info("decode complete",
		zap.Int("total", total),
		zap.Int("decoded", decoded),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

type jsonlWriter struct {
	file   *os.File
	writer *bufio.Writer
}

func newJSONLWriter(path string, appendMode bool) (*jsonlWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &jsonlWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *jsonlWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

func (w *jsonlWriter) Close() error {
	if w == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func decodeErrorFromRecord(record model.TxnRecord, err error) model.DecodeError {
	method := ""
	if action, ok := record.FirstAction(); ok {
		if name, ok := action.Method(); ok {
			method = name
		} else {
			method = string(action.Kind())
		}
	}
	contract := record.Contract
	if contract == "" {
		contract = record.ReceiverAccountID
	}

	return model.DecodeError{
		Contract:    contract,
		TxnID:       record.ID,
		TxHash:      record.TransactionHash,
		BlockHeight: record.ReceiptBlock.BlockHeight,
		Method:      method,
		Error:       err.Error(),
	}
}

func writeDecodeError(writer *jsonlWriter, errRecord model.DecodeError) {
	if writer == nil {
		return
	}
	_ = writer.Write(errRecord)
}
