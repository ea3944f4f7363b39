package services

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/horizonml/horizon-go/internal/models"
)

// maxInsights caps the returned list so dashboards stay readable.
const maxInsights = 6

// InsightGenerator turns a forecast trend into short, rule-based business
// insights: two-sided percentage thresholds per domain, confidence notes,
// and a few domain extras.
type InsightGenerator struct {
	printer *message.Printer
}

// NewInsightGenerator creates a new insight generator.
func NewInsightGenerator() *InsightGenerator {
	return &InsightGenerator{
		printer: message.NewPrinter(language.AmericanEnglish),
	}
}

// GenerateInsights derives an ordered insight list from the forecast. An
// empty forecast yields the single insufficient-data message; everything
// else produces at least one trend statement.
func (g *InsightGenerator) GenerateInsights(result models.ForecastResult, domain models.Domain) []string {
	if len(result.Predictions) == 0 {
		return []string{"Insufficient data for insights"}
	}

	insights := g.trendInsights(result, domain)
	insights = append(insights, g.confidenceInsights(result)...)
	insights = append(insights, g.domainInsights(result, domain)...)

	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

// trendPercent measures the relative move from the first to the last
// predicted value. A zero starting value reports 0 rather than dividing by
// zero; that degenerate case reads as a flat trend.
func trendPercent(result models.ForecastResult) float64 {
	if len(result.Predictions) < 2 {
		return 0
	}
	first := result.Predictions[0].PredictedValue
	last := result.Predictions[len(result.Predictions)-1].PredictedValue
	if first == 0 {
		return 0
	}
	return (last - first) / first * 100
}

func (g *InsightGenerator) trendInsights(result models.ForecastResult, domain models.Domain) []string {
	pct := trendPercent(result)

	switch domain {
	case models.DomainInventory:
		switch {
		case pct > 10:
			return []string{
				fmt.Sprintf("Expected %.1f%% increase in demand over forecast period", pct),
				"Consider increasing inventory levels to meet growing demand",
			}
		case pct < -10:
			return []string{
				fmt.Sprintf("Expected %.1f%% decrease in demand", math.Abs(pct)),
				"Consider reducing inventory to avoid overstocking",
			}
		default:
			return []string{
				"Demand expected to remain stable",
				"Current inventory levels appear adequate",
			}
		}

	case models.DomainBudget:
		switch {
		case pct > 15:
			return []string{
				fmt.Sprintf("Budget spending trending %.1f%% higher", pct),
				"Review spending controls and budget allocation",
			}
		case pct < -15:
			return []string{
				fmt.Sprintf("Budget spending trending %.1f%% lower", math.Abs(pct)),
				"Potential opportunity for budget reallocation",
			}
		default:
			return []string{"Budget spending on track with historical patterns"}
		}

	case models.DomainResource:
		switch {
		case pct > 10:
			return []string{
				fmt.Sprintf("Resource utilization expected to increase by %.1f%%", pct),
				"Consider capacity planning and resource allocation",
			}
		case pct < -10:
			return []string{
				fmt.Sprintf("Resource utilization expected to decrease by %.1f%%", math.Abs(pct)),
				"Potential opportunity for resource optimization",
			}
		default:
			return []string{"Resource utilization expected to remain stable"}
		}

	case models.DomainSales:
		switch {
		case pct > 10:
			return []string{
				fmt.Sprintf("Sales revenue expected to grow by %.1f%%", pct),
				"Positive growth trend - consider scaling operations",
			}
		case pct < -10:
			return []string{
				fmt.Sprintf("Sales revenue expected to decline by %.1f%%", math.Abs(pct)),
				"Review sales strategy and market conditions",
			}
		default:
			return []string{"Sales revenue expected to remain steady"}
		}
	}

	return nil
}

func (g *InsightGenerator) confidenceInsights(result models.ForecastResult) []string {
	var insights []string

	avg := result.AverageConfidence()
	minimum := result.Predictions[0].Confidence
	for _, p := range result.Predictions {
		if p.Confidence < minimum {
			minimum = p.Confidence
		}
	}

	if avg > 0.85 {
		insights = append(insights, "High confidence predictions based on strong historical patterns")
	} else if avg < 0.7 {
		insights = append(insights, "Prediction confidence is moderate - consider additional data collection")
	}
	if minimum < 0.6 {
		insights = append(insights, "Long-term predictions have lower confidence - monitor closely")
	}

	return insights
}

func (g *InsightGenerator) domainInsights(result models.ForecastResult, domain models.Domain) []string {
	values := make([]float64, len(result.Predictions))
	for i, p := range result.Predictions {
		values[i] = p.PredictedValue
	}

	switch domain {
	case models.DomainInventory:
		return inventoryVariabilityInsights(values)
	case models.DomainBudget:
		if len(values) >= 30 {
			return []string{g.printer.Sprintf("Total predicted spending for period: $%.0f", floats.Sum(values))}
		}
	case models.DomainSales:
		if len(values) >= 30 {
			return []string{g.printer.Sprintf("Projected revenue for period: $%.0f", floats.Sum(values))}
		}
	}

	return nil
}

// inventoryVariabilityInsights flags high demand spread and week-over-week
// pattern shifts in the forecast itself.
func inventoryVariabilityInsights(values []float64) []string {
	var insights []string

	maxDemand := floats.Max(values)
	minDemand := floats.Min(values)
	if maxDemand > minDemand*2 {
		insights = append(insights, "High demand variability - consider flexible inventory strategy")
	}

	if len(values) >= 14 {
		firstWeek := stat.Mean(values[:7], nil)
		secondWeek := stat.Mean(values[7:14], nil)
		if firstWeek != 0 && math.Abs(secondWeek-firstWeek)/math.Abs(firstWeek) > 0.2 {
			insights = append(insights, "Weekly demand patterns detected - optimize replenishment timing")
		}
	}

	return insights
}
