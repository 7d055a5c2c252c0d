package constants

import "somosrentable-backend/internal/domain"

// PermissionRoles maps each capability to the roles allowed to exercise it.
var PermissionRoles = map[string][]string{
	ReserveManage:    {domain.RoleExecutive, domain.RoleAdmin},
	KYCSubmit:        {domain.RoleInvestor},
	KYCReview:        {domain.RoleAdmin},
	InvestmentCreate: {domain.RoleInvestor},
	PaymentUpload:    {domain.RoleInvestor},
	PaymentReview:    {domain.RoleAdmin},
	LeadView:         {domain.RoleExecutive, domain.RoleAdmin},
	LeadManage:       {domain.RoleExecutive, domain.RoleAdmin},
	LeadAssign:       {domain.RoleAdmin},
	StatsView:        {domain.RoleAdmin},
	StatsViewOwn:     {domain.RoleExecutive, domain.RoleAdmin},
	ProjectManage:    {domain.RoleAdmin},
	UserView:         {domain.RoleExecutive, domain.RoleAdmin},
	UserManage:       {domain.RoleAdmin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
