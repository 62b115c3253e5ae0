package service

// Procedure paths. Every service lives under the hearth.v1 package.
const (
	HouseholdServiceName = "hearth.v1.HouseholdService"
	PeopleServiceName    = "hearth.v1.PeopleService"
	DebtServiceName      = "hearth.v1.DebtService"
	BillServiceName      = "hearth.v1.BillService"
	ReportServiceName    = "hearth.v1.ReportService"
)

const (
	CreateHouseholdProcedure = "/" + HouseholdServiceName + "/CreateHousehold"
	ListHouseholdsProcedure  = "/" + HouseholdServiceName + "/ListHouseholds"
	JoinHouseholdProcedure   = "/" + HouseholdServiceName + "/JoinHousehold"
	GetMembershipProcedure   = "/" + HouseholdServiceName + "/GetMembership"

	AddPersonProcedure      = "/" + PeopleServiceName + "/AddPerson"
	UpdatePersonProcedure   = "/" + PeopleServiceName + "/UpdatePerson"
	RemovePersonProcedure   = "/" + PeopleServiceName + "/RemovePerson"
	ListPeopleProcedure     = "/" + PeopleServiceName + "/ListPeople"
	AddCategoryProcedure    = "/" + PeopleServiceName + "/AddCategory"
	RemoveCategoryProcedure = "/" + PeopleServiceName + "/RemoveCategory"
	ListCategoriesProcedure = "/" + PeopleServiceName + "/ListCategories"

	CreatePurchaseProcedure       = "/" + DebtServiceName + "/CreatePurchase"
	AmendPurchaseProcedure        = "/" + DebtServiceName + "/AmendPurchase"
	DeletePurchaseProcedure       = "/" + DebtServiceName + "/DeletePurchase"
	GetPurchaseProcedure          = "/" + DebtServiceName + "/GetPurchase"
	GetPurchaseFormProcedure      = "/" + DebtServiceName + "/GetPurchaseForm"
	DeleteInstallmentProcedure    = "/" + DebtServiceName + "/DeleteInstallment"
	ListInstallmentsProcedure     = "/" + DebtServiceName + "/ListInstallments"
	ToggleInstallmentProcedure    = "/" + DebtServiceName + "/ToggleInstallment"
	RecordPartialPaymentProcedure = "/" + DebtServiceName + "/RecordPartialPayment"
	MarkAllPaidProcedure          = "/" + DebtServiceName + "/MarkAllPaid"

	CreateBillProcedure     = "/" + BillServiceName + "/CreateBill"
	UpdateBillProcedure     = "/" + BillServiceName + "/UpdateBill"
	DeleteBillProcedure     = "/" + BillServiceName + "/DeleteBill"
	ListBillsProcedure      = "/" + BillServiceName + "/ListBills"
	ToggleBillProcedure     = "/" + BillServiceName + "/ToggleBill"
	StopRecurrenceProcedure = "/" + BillServiceName + "/StopRecurrence"

	GetDashboardProcedure     = "/" + ReportServiceName + "/GetDashboard"
	GetReportProcedure        = "/" + ReportServiceName + "/GetReport"
	GetFilterOptionsProcedure = "/" + ReportServiceName + "/GetFilterOptions"
	WatchDashboardProcedure   = "/" + ReportServiceName + "/WatchDashboard"
)
