package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/source"
)

func writeBenchImport(b *testing.B, files, lines int) string {
	b.Helper()
	dir := b.TempDir()
	for f := 0; f < files; f++ {
		var sb strings.Builder
		for i := 0; i < lines; i++ {
			fmt.Fprintf(&sb, `{"type":"expense","id":"e%d-%d","budget_id":"b%d","category":"food","amount":"%d.25","method":"DEBIT_CARD","at":"2026-03-01T10:00:00Z"}`+"\n", f, i, f, i%90+1)
		}
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("f%03d.jsonl", f)), []byte(sb.String()), 0o600); err != nil {
			b.Fatal(err)
		}
	}
	return dir
}

func BenchmarkLoad(b *testing.B) {
	dir := writeBenchImport(b, 16, 2000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result, err := Load(dir, "", nil)
		if err != nil {
			b.Fatal(err)
		}
		_ = result
	}
}

func BenchmarkParseFile(b *testing.B) {
	dir := writeBenchImport(b, 1, 20000)
	files, err := source.ScanDir(dir)
	if err != nil || len(files) != 1 {
		b.Fatalf("scan: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result := source.ParseFile(files[0])
		if result.Err != nil {
			b.Fatal(result.Err)
		}
	}
}

func BenchmarkAggregate(b *testing.B) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local)
	methods := model.AllPaymentMethods
	expenses := make([]model.Expense, 50000)
	for i := range expenses {
		expenses[i] = model.Expense{
			ID:       fmt.Sprint(i),
			Category: fmt.Sprintf("c%d", i%12),
			Amount:   decimal.NewFromInt(int64(i%200 + 1)),
			Method:   methods[i%len(methods)],
			At:       start.Add(time.Duration(i) * 7 * time.Minute),
		}
	}
	fees := config.NewFeeSchedule(config.FeeOverrides{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Aggregate(expenses, fees, time.Time{}, time.Time{})
		_, _ = AggregateMethods(expenses, fees, time.Time{}, time.Time{})
	}
}
