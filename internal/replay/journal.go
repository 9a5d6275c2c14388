package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"multipool/internal/model"
)

// ReadJournalFile loads every operation from a JSONL journal on disk.
func ReadJournalFile(path string) ([]model.Operation, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()
	return ReadJournal(file)
}

// ReadJournal decodes one operation per non-empty line. A missing seq
// continues from the previous line; explicit seqs must increase.
func ReadJournal(r io.Reader) ([]model.Operation, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var (
		ops     []model.Operation
		lastSeq uint64
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var op model.Operation
		if err := json.Unmarshal(line, &op); err != nil {
			return nil, fmt.Errorf("line %d: decode operation: %w", lineNo, err)
		}
		if op.Op == "" {
			return nil, fmt.Errorf("line %d: op is required", lineNo)
		}
		if op.Seq == 0 {
			op.Seq = lastSeq + 1
		}
		if op.Seq <= lastSeq {
			return nil, fmt.Errorf("line %d: seq %d not after %d", lineNo, op.Seq, lastSeq)
		}
		lastSeq = op.Seq
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return ops, nil
}
