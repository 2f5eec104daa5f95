package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"illyrian_project/internal/catalog"
)

type offerView struct {
	catalog.Offer
	DisplayTime string `json:"displayTime"`
}

type miningTierView struct {
	catalog.MiningTier
	DisplayTime string `json:"displayTime"`
}

// Catalog lists the offers, mining tiers and payout networks.
func (h *Handler) Catalog(c *gin.Context) {
	offers := make([]offerView, 0, len(catalog.Offers()))
	for _, o := range catalog.Offers() {
		offers = append(offers, offerView{Offer: o, DisplayTime: o.DisplayTime()})
	}
	tiers := make([]miningTierView, 0, len(catalog.MiningTiers()))
	for _, t := range catalog.MiningTiers() {
		tiers = append(tiers, miningTierView{MiningTier: t, DisplayTime: t.DisplayTime()})
	}

	c.JSON(http.StatusOK, gin.H{
		"offers":      offers,
		"miningTiers": tiers,
		"networks":    catalog.Networks(),
	})
}
