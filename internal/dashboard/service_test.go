package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-backend/internal/client"
	"crm-backend/internal/document"
)

// stubClients serves a fixed table.
type stubClients struct {
	clients []client.Client
}

func (s *stubClients) List(ctx context.Context, f client.Filter) ([]client.Client, error) {
	return s.clients, nil
}
func (s *stubClients) Get(ctx context.Context, id string) (client.Client, error) {
	return client.Client{}, nil
}
func (s *stubClients) Create(ctx context.Context, c client.Client, actor string) (client.Client, error) {
	return c, nil
}
func (s *stubClients) Update(ctx context.Context, id string, c client.Client, actor string) (client.Client, error) {
	return c, nil
}
func (s *stubClients) ChangeStatus(ctx context.Context, id, status, secondary, note, actor string) (client.Client, error) {
	return client.Client{}, nil
}
func (s *stubClients) Delete(ctx context.Context, id string, purgeHistory bool, actor string) error {
	return nil
}
func (s *stubClients) Import(ctx context.Context, header []string, rows [][]string, mapping map[string]string, mode client.ImportMode, actor string) (client.ImportResult, error) {
	return client.ImportResult{}, nil
}
func (s *stubClients) Advisors(ctx context.Context) ([]string, error) { return nil, nil }
func (s *stubClients) Ref(ctx context.Context, id string) (document.Ref, error) {
	return document.Ref{}, nil
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$1,500,000", 1500000},
		{" 2500 ", 2500},
		{"$ 1 000", 1000},
		{"", 0},
		{"n/a", 0},
		{"1200.50", 1200.50},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseAmount(tt.in), tt.in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$0", FormatAmount(0))
	assert.Equal(t, "$1.5M", FormatAmount(1_500_000))
	assert.Equal(t, "$250K", FormatAmount(250_000))
	assert.Equal(t, "$999", FormatAmount(999))
	assert.Equal(t, "$1.0M", FormatAmount(1_000_000))
	assert.Equal(t, "$1K", FormatAmount(1_000))
}

func TestSummary_CountsAndFinancials(t *testing.T) {
	stub := &stubClients{clients: []client.Client{
		{ID: "C1", Status: "DISBURSED", Branch: "NORTH", Advisor: "María", Source: "referral",
			IntakeDate: "01/15/2025", ProposedAmount: "$100,000", FinalAmount: "$90,000"},
		{ID: "C2", Status: "PROPOSAL", Branch: "NORTH", Advisor: "María", Source: "web",
			IntakeDate: "01/20/2025", ProposedAmount: "$50,000"},
		{ID: "C3", Status: "PROPOSAL", Branch: "SOUTH", Advisor: "Pedro",
			IntakeDate: "02/01/2025"},
	}}
	svc := NewService(stub)

	sum, err := svc.Summary(context.Background(), client.Filter{})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.TotalClients)
	assert.Equal(t, 2, sum.ByStatus["PROPOSAL"])
	assert.Equal(t, 1, sum.ByStatus["DISBURSED"])
	assert.Equal(t, 2, sum.ByBranch["NORTH"])
	assert.Equal(t, 2, sum.ByAdvisor["María"])
	assert.Equal(t, 1, sum.BySource["(none)"])
	assert.Equal(t, 2, sum.MonthlyIntake["2025-01"])
	assert.Equal(t, 1, sum.MonthlyIntake["2025-02"])

	fin := sum.Financials
	assert.InDelta(t, 150000, fin.TotalProposed, 0.01)
	assert.Equal(t, "$150K", fin.TotalProposedText)
	assert.InDelta(t, 90000, fin.TotalDisbursed, 0.01)
	assert.Equal(t, "$90K", fin.TotalDisbursedText)
	assert.InDelta(t, 50000, fin.AvgProposed, 0.01)
	assert.InDelta(t, 90000, fin.AvgDisbursed, 0.01)
	assert.InDelta(t, 60.0, fin.ConversionRate, 0.01)
	assert.Equal(t, 2, fin.ClientsWithAmount)
	assert.Equal(t, 1, fin.DisbursedWithAmount)

	st := fin.ByStatus["PROPOSAL"]
	assert.Equal(t, 2, st.Count)
	assert.InDelta(t, 50000, st.ProposedSum, 0.01)
	assert.InDelta(t, 25000, st.ProposedMean, 0.01)
}

func TestSummary_EmptyRegistry(t *testing.T) {
	svc := NewService(&stubClients{})
	sum, err := svc.Summary(context.Background(), client.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.TotalClients)
	assert.Equal(t, "$0", sum.Financials.TotalProposedText)
}
