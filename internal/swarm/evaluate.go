package swarm

import (
	"math"

	"github.com/mfalcon/negotia/internal/agent"
	"github.com/mfalcon/negotia/internal/negotiation"
	"github.com/mfalcon/negotia/internal/scoring"
	"github.com/mfalcon/negotia/pkg/models"
)

// Evaluate scores every concluded session. Only agreement sessions
// carry scores; failed sessions appear in the summary's FailedCount and
// nothing else. Averages run over agreed sessions only.
func Evaluate(sessions []*negotiation.Negotiation, sellers map[string]*agent.Seller, buyers map[string]*agent.Buyer) ([]models.SessionResult, models.SwarmSummary) {
	var (
		results   []models.SessionResult
		summary   models.SwarmSummary
		sumSeller float64
		sumBuyer  float64
	)
	for _, n := range sessions {
		switch n.Status {
		case models.StatusFailed:
			summary.FailedCount++
			continue
		case models.StatusAgreement:
		default:
			continue
		}
		if n.FinalTerms == nil {
			continue
		}

		var sellerWeights, buyerWeights map[string]float64
		if s, ok := sellers[n.SellerID]; ok {
			sellerWeights = s.TermWeights()
		}
		if b, ok := buyers[n.BuyerID]; ok {
			buyerWeights = b.TermWeights()
		}

		sScore, bScore := scoreSession(n, sellerWeights, buyerWeights)
		results = append(results, models.SessionResult{
			SessionID:   n.ID,
			SellerID:    n.SellerID,
			BuyerID:     n.BuyerID,
			Status:      n.Status,
			SellerScore: sScore,
			BuyerScore:  bScore,
			Gap:         round3(math.Abs(sScore - bScore)),
		})
		summary.AgreedCount++
		sumSeller += sScore
		sumBuyer += bScore
	}
	if summary.AgreedCount > 0 {
		summary.AvgSeller = round3(sumSeller / float64(summary.AgreedCount))
		summary.AvgBuyer = round3(sumBuyer / float64(summary.AgreedCount))
	}
	return results, summary
}

func scoreSession(n *negotiation.Negotiation, sellerWeights, buyerWeights map[string]float64) (sellerScore, buyerScore float64) {
	ft := n.FinalTerms
	if n.IsMultiItem() {
		out := scoring.AggregateOutcome{
			TotalPrice:    ft.TotalPrice,
			TotalQuantity: ft.TotalQuantity,
		}
		if len(ft.PerItem) > 0 {
			out = scoring.AggregateMultiItemOutcome(ft.PerItem, *n.MultiTerms)
		}
		sellerScore = scoring.ScoreMultiItem(models.RoleSeller, out, ft.DeliveryDays, ft.UpfrontPct, *n.MultiTerms, sellerWeights)
		buyerScore = scoring.ScoreMultiItem(models.RoleBuyer, out, ft.DeliveryDays, ft.UpfrontPct, *n.MultiTerms, buyerWeights)
		return sellerScore, buyerScore
	}
	scalars := ft.Scalars()
	sellerScore = scoring.ScoreAgent(models.RoleSeller, scalars, n.Terms, sellerWeights)
	buyerScore = scoring.ScoreAgent(models.RoleBuyer, scalars, n.Terms, buyerWeights)
	return sellerScore, buyerScore
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
