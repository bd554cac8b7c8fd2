package rules

import (
	"testing"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

func TestIdleResourceRule_Evaluate(t *testing.T) {
	idle := func(cost, qty string) models.UsageRecord {
		return models.UsageRecord{ResourceID: "eip-1", Service: models.ServiceOther, Cost: usd(cost), UsageQuantity: usd(qty)}
	}

	t.Run("cost with zero usage triggers", func(t *testing.T) {
		sig := IdleResourceRule{}.Evaluate(RuleContext{Record: idle("3.60", "0"), History: []models.UsageRecord{idle("3.60", "0")}})
		if !sig.Triggered || sig.Weight != 50 {
			t.Errorf("got triggered=%v weight=%v", sig.Triggered, sig.Weight)
		}
	})

	t.Run("usage earlier in the window suppresses", func(t *testing.T) {
		sig := IdleResourceRule{}.Evaluate(RuleContext{Record: idle("3.60", "0"), History: []models.UsageRecord{idle("3.60", "12")}})
		if sig.Triggered {
			t.Error("resource used earlier in the window is not idle")
		}
	})

	t.Run("free resource is not idle waste", func(t *testing.T) {
		if sig := (IdleResourceRule{}).Evaluate(RuleContext{Record: idle("0", "0")}); sig.Triggered {
			t.Error("zero cost must not trigger")
		}
	})

	t.Run("epsilon tolerates rounding noise", func(t *testing.T) {
		if sig := (IdleResourceRule{}).Evaluate(RuleContext{Record: idle("1", "0.005")}); !sig.Triggered {
			t.Error("usage below epsilon must count as idle")
		}
	})
}
