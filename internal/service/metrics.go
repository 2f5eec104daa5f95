package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"illyrian_project/internal/domain"
)

var (
	referralApplications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_applications_total",
			Help: "Referral code redemptions by result code",
		},
		[]string{"result"},
	)
	signups = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signups_total",
			Help: "Accounts created",
		},
	)
)

func init() {
	prometheus.MustRegister(referralApplications)
	prometheus.MustRegister(signups)
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "error"
}
