package constants

// Capabilities checked at the HTTP boundary.
const (
	ReserveManage    = "reserve.manage"
	KYCSubmit        = "kyc.submit"
	KYCReview        = "kyc.review"
	InvestmentCreate = "investment.create"
	PaymentUpload    = "payment.upload"
	PaymentReview    = "payment.review"
	LeadView         = "lead.view"
	LeadManage       = "lead.manage"
	LeadAssign       = "lead.assign"
	StatsView        = "stats.view"
	StatsViewOwn     = "stats.view_own"
	ProjectManage    = "project.manage"
	UserView         = "user.view"
	UserManage       = "user.manage"
)
