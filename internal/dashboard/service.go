// Package dashboard aggregates registry data into the summary KPIs.
// Everything is derived on demand from the client table; nothing here
// is persisted.
package dashboard

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"crm-backend/internal/catalog"
	"crm-backend/internal/client"
)

// StatusFinancials aggregates amounts for one status.
type StatusFinancials struct {
	Count        int     `json:"count"`
	ProposedSum  float64 `json:"proposed_sum"`
	ProposedMean float64 `json:"proposed_mean"`
	FinalSum     float64 `json:"final_sum"`
	FinalMean    float64 `json:"final_mean"`
}

// Financials is the money side of the summary.
type Financials struct {
	TotalProposed       float64                     `json:"total_proposed"`
	TotalProposedText   string                      `json:"total_proposed_text"`
	TotalDisbursed      float64                     `json:"total_disbursed"`
	TotalDisbursedText  string                      `json:"total_disbursed_text"`
	AvgProposed         float64                     `json:"avg_proposed"`
	AvgDisbursed        float64                     `json:"avg_disbursed"`
	ConversionRate      float64                     `json:"conversion_rate"`
	ClientsWithAmount   int                         `json:"clients_with_amount"`
	DisbursedWithAmount int                         `json:"disbursed_with_amount"`
	ByStatus            map[string]StatusFinancials `json:"by_status"`
}

// Summary is the dashboard payload.
type Summary struct {
	TotalClients  int            `json:"total_clients"`
	ByStatus      map[string]int `json:"by_status"`
	ByBranch      map[string]int `json:"by_branch"`
	ByAdvisor     map[string]int `json:"by_advisor"`
	BySource      map[string]int `json:"by_source"`
	MonthlyIntake map[string]int `json:"monthly_intake"`
	Financials    Financials     `json:"financials"`
}

// Service computes the summary from the client registry.
type Service struct {
	clients client.Service
}

func NewService(clients client.Service) *Service {
	return &Service{clients: clients}
}

func (s *Service) Summary(ctx context.Context, f client.Filter) (Summary, error) {
	all, err := s.clients.List(ctx, f)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		TotalClients:  len(all),
		ByStatus:      map[string]int{},
		ByBranch:      map[string]int{},
		ByAdvisor:     map[string]int{},
		BySource:      map[string]int{},
		MonthlyIntake: map[string]int{},
		Financials: Financials{
			ByStatus: map[string]StatusFinancials{},
		},
	}

	disbursedCount := 0
	for _, c := range all {
		count(sum.ByStatus, c.Status)
		count(sum.ByBranch, c.Branch)
		count(sum.ByAdvisor, c.Advisor)
		count(sum.BySource, c.Source)
		if t, ok := client.ParseDateFlexible(c.IntakeDate); ok {
			sum.MonthlyIntake[t.Format("2006-01")]++
		}

		proposed := ParseAmount(c.ProposedAmount)
		final := ParseAmount(c.FinalAmount)
		fin := &sum.Financials
		fin.TotalProposed += proposed
		if proposed > 0 {
			fin.ClientsWithAmount++
		}
		if c.Status == catalog.StatusDisbursed {
			disbursedCount++
			fin.TotalDisbursed += final
			if final > 0 {
				fin.DisbursedWithAmount++
			}
		}

		st := fin.ByStatus[c.Status]
		st.Count++
		st.ProposedSum += proposed
		st.FinalSum += final
		fin.ByStatus[c.Status] = st
	}

	fin := &sum.Financials
	if len(all) > 0 {
		fin.AvgProposed = fin.TotalProposed / float64(len(all))
	}
	if disbursedCount > 0 {
		fin.AvgDisbursed = fin.TotalDisbursed / float64(disbursedCount)
	}
	if fin.TotalProposed > 0 {
		fin.ConversionRate = fin.TotalDisbursed / fin.TotalProposed * 100
	}
	for status, st := range fin.ByStatus {
		if st.Count > 0 {
			st.ProposedMean = st.ProposedSum / float64(st.Count)
			st.FinalMean = st.FinalSum / float64(st.Count)
		}
		fin.ByStatus[status] = st
	}
	fin.TotalProposedText = FormatAmount(fin.TotalProposed)
	fin.TotalDisbursedText = FormatAmount(fin.TotalDisbursed)

	return sum, nil
}

func count(m map[string]int, key string) {
	if strings.TrimSpace(key) == "" {
		key = "(none)"
	}
	m[key]++
}

var amountJunkRe = regexp.MustCompile(`[,$\s]`)

// ParseAmount converts a currency-formatted string to a number.
// Unparseable input counts as zero.
func ParseAmount(s string) float64 {
	s = amountJunkRe.ReplaceAllString(strings.TrimSpace(s), "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatAmount renders an amount the way the dashboard shows money.
func FormatAmount(v float64) string {
	switch {
	case v == 0:
		return "$0"
	case v >= 1_000_000:
		return fmt.Sprintf("$%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.0fK", v/1_000)
	default:
		return "$" + groupThousands(v)
	}
}

func groupThousands(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
