// Package source discovers and parses JSONL expense import files.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/theirongolddev/bopt/internal/model"
)

// Byte patterns for field extraction.
var (
	patID1 = []byte(`"id":"`)
	patID2 = []byte(`"id": "`)
)

// ParseResult holds the output of parsing a single JSONL file.
type ParseResult struct {
	Records     []Record
	ParseErrors int
	Err         error
}

// ParseFile reads an import file into validated records. Expense lines that
// repeat an id are deduplicated with the last one winning; it takes the
// position of its last occurrence.
//
// Line routing by top-level "type" field:
//   - "retract" → byte-level extraction of the expense id
//   - "expense" → full JSON parse and validation
//   - everything else → skip
func ParseFile(df DiscoveredFile) ParseResult {
	f, err := os.Open(df.Path)
	if err != nil {
		return ParseResult{Err: err}
	}
	defer func() { _ = f.Close() }()

	var (
		records     []Record
		dead        []bool
		byID        = make(map[string]int)
		parseErrors int
		lineNo      int
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()

		switch extractTopLevelType(line) {
		case TypeRetract:
			id := extractIDBytes(line)
			if id == "" {
				parseErrors++
				continue
			}
			records = append(records, Record{Type: TypeRetract, File: df.Path, Line: lineNo, ID: id})
			dead = append(dead, false)

		case TypeExpense:
			var raw RawExpense
			if err := json.Unmarshal(line, &raw); err != nil {
				parseErrors++
				continue
			}
			rec, ok := toRecord(raw, df)
			if !ok {
				parseErrors++
				continue
			}
			rec.File, rec.Line = df.Path, lineNo
			if rec.ID != "" {
				if prev, seen := byID[rec.ID]; seen {
					dead[prev] = true
				}
				byID[rec.ID] = len(records)
			}
			records = append(records, rec)
			dead = append(dead, false)
		}
	}

	if err := scanner.Err(); err != nil {
		return ParseResult{Err: err}
	}

	out := records[:0]
	for i, r := range records {
		if !dead[i] {
			out = append(out, r)
		}
	}
	return ParseResult{Records: out, ParseErrors: parseErrors}
}

func toRecord(raw RawExpense, df DiscoveredFile) (Record, bool) {
	budgetID := strings.TrimSpace(raw.BudgetID)
	if budgetID == "" {
		budgetID = df.BudgetID
	}
	category := strings.TrimSpace(raw.Category)
	if budgetID == "" || category == "" || !raw.Amount.IsPositive() {
		return Record{}, false
	}
	method, err := model.ParsePaymentMethod(raw.Method)
	if err != nil {
		return Record{}, false
	}
	var at time.Time
	if raw.At != "" {
		if at, err = time.Parse(time.RFC3339Nano, raw.At); err != nil {
			return Record{}, false
		}
	}
	return Record{
		Type:       TypeExpense,
		ID:         strings.TrimSpace(raw.ID),
		BudgetID:   budgetID,
		Category:   category,
		OwnerID:    raw.OwnerID,
		BusinessID: raw.BusinessID,
		Amount:     raw.Amount,
		Method:     method,
		At:         at,
		Note:       raw.Note,
	}, true
}

// typeKey is the byte sequence for a JSON key named "type" (with quotes).
var typeKey = []byte(`"type"`)

// extractTopLevelType finds the top-level "type" field in a JSONL line.
// Tracks brace depth and string boundaries so nested "type" keys are ignored.
func extractTopLevelType(line []byte) string {
	depth := 0
	for i := 0; i < len(line); {
		switch line[i] {
		case '"':
			if depth == 1 && bytes.HasPrefix(line[i:], typeKey) {
				val, isKey := classifyType(line, i+len(typeKey))
				if isKey {
					return val
				}
			}
			i = skipJSONString(line, i)
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
		default:
			i++
		}
	}
	return ""
}

// classifyType checks whether pos follows a JSON key (expects : then value).
// isKey=false means "type" appeared as a value and scanning should continue.
func classifyType(line []byte, pos int) (val string, isKey bool) {
	i := skipSpaces(line, pos)
	if i >= len(line) || line[i] != ':' {
		return "", false
	}
	i = skipSpaces(line, i+1)
	if i >= len(line) || line[i] != '"' {
		return "", true
	}
	i++

	end := bytes.IndexByte(line[i:], '"')
	if end < 0 || end > 20 {
		return "", true
	}
	v := string(line[i : i+end])
	switch v {
	case TypeExpense, TypeRetract:
		return v, true
	}
	return "", true
}

// skipJSONString advances past a JSON string starting at the opening quote.
//
//nolint:gosec // manual bounds checking throughout
func skipJSONString(line []byte, i int) int {
	i++
	for i < len(line) {
		switch line[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1
		default:
			i++
		}
	}
	return i
}

func skipSpaces(line []byte, i int) int {
	for i < len(line) && line[i] == ' ' {
		i++
	}
	return i
}

// extractIDBytes extracts the "id" field via byte scanning.
func extractIDBytes(line []byte) string {
	for _, pat := range [][]byte{patID1, patID2} {
		idx := bytes.Index(line, pat)
		if idx < 0 {
			continue
		}
		start := idx + len(pat)
		end := bytes.IndexByte(line[start:], '"')
		if end < 0 || end > 128 {
			continue
		}
		return string(line[start : start+end])
	}
	return ""
}
