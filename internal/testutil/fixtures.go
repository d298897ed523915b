package testutil

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// Raw builds a raw table of n rows; row returns the values of row i (1-based).
func Raw(name string, columns []string, n int, row func(i int) []string) *core.RawTable {
	t := &core.RawTable{Name: name, Columns: columns}
	for i := 1; i <= n; i++ {
		vals := row(i)
		rec := make(core.Record, len(columns))
		for j, c := range columns {
			rec[c] = vals[j]
		}
		t.Records = append(t.Records, rec)
	}
	return t
}

// Retail is the classic fact-less shop: orders carry the money, order
// lines carry the products.
func Retail() []*core.RawTable {
	return []*core.RawTable{
		Raw("customers", []string{"customer_id", "name", "email"}, 5, func(i int) []string {
			return []string{fmt.Sprint(i), fmt.Sprintf("Customer %d", i), fmt.Sprintf("c%d@example.com", i)}
		}),
		Raw("orders", []string{"order_id", "customer_id", "order_date", "total_amount"}, 10, func(i int) []string {
			return []string{fmt.Sprint(100 + i), fmt.Sprint(1 + i%5), fmt.Sprintf("2024-01-%02d", i), fmt.Sprintf("%d.50", 10*i)}
		}),
		Raw("order_items", []string{"order_item_id", "order_id", "product_id", "quantity"}, 20, func(i int) []string {
			return []string{fmt.Sprint(i), fmt.Sprint(101 + i%10), fmt.Sprint(1 + i%4), fmt.Sprint(1 + i%3)}
		}),
		Raw("products", []string{"product_id", "product_name", "price"}, 4, func(i int) []string {
			return []string{fmt.Sprint(i), fmt.Sprintf("Product %d", i), fmt.Sprintf("%d.99", i)}
		}),
	}
}

// WriteCSV writes raw tables as <name>.csv files into dir.
func WriteCSV(t testing.TB, dir string, tables []*core.RawTable) {
	t.Helper()
	for _, tbl := range tables {
		f, err := os.Create(filepath.Join(dir, tbl.Name+".csv"))
		if err != nil {
			t.Fatalf("create %s: %v", tbl.Name, err)
		}
		w := csv.NewWriter(f)
		rows := [][]string{tbl.Columns}
		for _, rec := range tbl.Records {
			row := make([]string, len(tbl.Columns))
			for i, c := range tbl.Columns {
				row[i] = rec[c]
			}
			rows = append(rows, row)
		}
		if err := w.WriteAll(rows); err != nil {
			t.Fatalf("write %s: %v", tbl.Name, err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("close %s: %v", tbl.Name, err)
		}
	}
}
