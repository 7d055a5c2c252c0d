package constants

import (
	"testing"

	"somosrentable-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestAllowedRole(t *testing.T) {
	assert.True(t, AllowedRole(KYCSubmit, domain.RoleInvestor))
	assert.False(t, AllowedRole(KYCSubmit, domain.RoleAdmin))
	assert.True(t, AllowedRole(PaymentReview, domain.RoleAdmin))
	assert.False(t, AllowedRole(PaymentReview, domain.RoleExecutive))
	assert.True(t, AllowedRole(LeadView, domain.RoleExecutive))
	assert.False(t, AllowedRole(LeadAssign, domain.RoleExecutive))
	assert.False(t, AllowedRole("unknown.capability", domain.RoleAdmin))
}

func TestEveryCapabilityHasRoles(t *testing.T) {
	for _, p := range []string{ReserveManage, KYCSubmit, KYCReview, InvestmentCreate, PaymentUpload,
		PaymentReview, LeadView, LeadManage, LeadAssign, StatsView, StatsViewOwn, ProjectManage, UserView, UserManage} {
		assert.NotEmpty(t, PermissionRoles[p], p)
	}
}
