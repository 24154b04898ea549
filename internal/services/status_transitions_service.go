package services

import "remesas/internal/models"

// KYCTransitions: допустимые переходы статуса верификации.
// approved финальный; expired зарезервирован и никуда не ведёт.
var KYCTransitions = map[models.VerificationStatus]map[models.VerificationStatus]bool{
	models.VerificationDraft:    {models.VerificationPending: true},
	models.VerificationPending:  {models.VerificationApproved: true, models.VerificationRejected: true},
	models.VerificationRejected: {models.VerificationDraft: true, models.VerificationPending: true},
	models.VerificationApproved: {},
	models.VerificationExpired:  {},
}

func canTransition(current, to models.VerificationStatus) bool {
	nexts, ok := KYCTransitions[current]
	if !ok {
		return false
	}
	return nexts[to]
}

// editable reports whether the client may still change data on a row in status s.
func editable(s models.VerificationStatus) bool {
	return s == models.VerificationDraft || s == models.VerificationRejected
}
