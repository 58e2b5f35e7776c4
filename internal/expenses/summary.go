package expenses

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var datePrefixPattern = regexp.MustCompile(`^\d{4}(-(0[1-9]|1[0-2]))?$`)

// ValidDatePrefix reports whether p is empty, YYYY or YYYY-MM.
func ValidDatePrefix(p string) bool {
	return p == "" || datePrefixPattern.MatchString(p)
}

// Matches reports whether e passes every filter in req.
func (req ListExpensesRequest) Matches(e Expense) bool {
	if req.Type != "" && e.Type != req.Type {
		return false
	}
	if req.DatePrefix != "" && !strings.HasPrefix(e.Date.String(), req.DatePrefix) {
		return false
	}
	if req.RelatedOrderID != nil && (e.RelatedOrderID == nil || *e.RelatedOrderID != *req.RelatedOrderID) {
		return false
	}
	return true
}

// SortNewestFirst orders expenses by date descending. Same-day entries keep
// their relative order.
func SortNewestFirst(list []Expense) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Date.After(list[j].Date)
	})
}

// Summarize totals list by YYYY-MM and YYYY periods.
func Summarize(list []Expense) Summary {
	monthly := map[string]decimal.Decimal{}
	yearly := map[string]decimal.Decimal{}
	total := decimal.Zero
	count := 0
	for _, e := range list {
		day := e.Date.String()
		if len(day) < len("2006-01-02") {
			continue
		}
		monthly[day[:7]] = monthly[day[:7]].Add(e.Amount)
		yearly[day[:4]] = yearly[day[:4]].Add(e.Amount)
		total = total.Add(e.Amount)
		count++
	}
	return Summary{
		Monthly: periodTotals(monthly),
		Yearly:  periodTotals(yearly),
		Total:   total,
		Count:   count,
	}
}

func periodTotals(m map[string]decimal.Decimal) []PeriodTotal {
	out := make([]PeriodTotal, 0, len(m))
	for period, total := range m {
		out = append(out, PeriodTotal{Period: period, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })
	return out
}
