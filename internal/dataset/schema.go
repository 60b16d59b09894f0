package dataset

import (
	"fmt"
	"strings"
)

// Schema lists, per feature, the header names accepted for that column in
// priority order. Matching is case-insensitive.
type Schema struct {
	Fraud    []string
	Amount   []string
	Product  []string
	Device   []string
	Time     []string
	Browser  []string
	Country  []string
	Merchant []string
}

// DefaultSchema follows the IEEE-CIS fraud dataset column names and accepts
// the common names used by other labelled transaction datasets.
var DefaultSchema = Schema{
	Fraud:    []string{"isFraud", "is_fraud", "fraud", "label"},
	Amount:   []string{"TransactionAmt", "amount", "amt"},
	Product:  []string{"ProductCD", "payment_type", "category"},
	Device:   []string{"DeviceType", "device_type", "device"},
	Time:     []string{"TransactionDT", "trans_date_trans_time", "timestamp", "date"},
	Browser:  []string{"id_31", "browser"},
	Country:  []string{"addr2", "country"},
	Merchant: []string{"merchant", "P_emaildomain", "merchant_name"},
}

// columns holds resolved column indexes; -1 marks an absent column.
type columns struct {
	fraud, amount, product, device, time, browser, country, merchant int
}

func (s Schema) resolve(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	find := func(aliases []string) int {
		for _, a := range aliases {
			if i, ok := index[strings.ToLower(a)]; ok {
				return i
			}
		}
		return -1
	}

	cols := columns{
		fraud:    find(s.Fraud),
		amount:   find(s.Amount),
		product:  find(s.Product),
		device:   find(s.Device),
		time:     find(s.Time),
		browser:  find(s.Browser),
		country:  find(s.Country),
		merchant: find(s.Merchant),
	}
	if cols.fraud < 0 {
		return cols, fmt.Errorf("dataset header has no fraud label column (tried %s)", strings.Join(s.Fraud, ", "))
	}
	return cols, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	v := strings.TrimSpace(record[i])
	switch strings.ToLower(v) {
	case "nan", "null", "na", "none":
		return ""
	}
	return v
}
