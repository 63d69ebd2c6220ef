package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Balance is a participant's net position: positive means they are owed money.
type Balance struct {
	ParticipantID string
	DisplayName   string
	Net           decimal.Decimal
}

// ComputeBalances nets expenses and payments against the share plan.
//
// Each expense credits its payer with the full amount and debits every
// participant with amount * share. A payment credits its sender only; the
// receiver side is left untouched. Shares missing from plan fall back to 1/N
// where N is len(participants). Accumulators for IDs that are not
// participants are dropped. Amounts are not validated.
func ComputeBalances(expenses []*Expense, payments []*Payment, plan SharePlan, participants []Participant) []Balance {
	if len(participants) == 0 {
		return []Balance{}
	}

	n := len(participants)
	paid := make(map[string]decimal.Decimal, n)
	owed := make(map[string]decimal.Decimal, n)

	for _, exp := range expenses {
		paid[exp.PayerID] = paid[exp.PayerID].Add(exp.Amount)
		for _, p := range participants {
			owed[p.ID] = owed[p.ID].Add(exp.Amount.Mul(plan.ShareFor(p.ID, n)))
		}
	}

	for _, pay := range payments {
		paid[pay.FromParticipantID] = paid[pay.FromParticipantID].Add(pay.Amount)
	}

	balances := make([]Balance, 0, n)
	for _, p := range participants {
		balances = append(balances, Balance{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Net:           roundCents(paid[p.ID].Sub(owed[p.ID])),
		})
	}

	sort.SliceStable(balances, func(i, j int) bool {
		if !balances[i].Net.Equal(balances[j].Net) {
			return balances[i].Net.GreaterThan(balances[j].Net)
		}
		return balances[i].ParticipantID < balances[j].ParticipantID
	})

	return balances
}

var halfCent = decimal.New(5, -1)

// roundCents rounds half up to two places, so -0.125 becomes -0.12.
func roundCents(v decimal.Decimal) decimal.Decimal {
	return v.Shift(2).Add(halfCent).Floor().Shift(-2)
}
