package auth

import "distromart-be/internal/apperr"

type Capability string

const (
	CapPlaceOwnOrder        Capability = "place_own_order"
	CapCreateOrderForClient Capability = "create_order_for_client"
	CapRecordPayment        Capability = "record_payment"
	CapAdjustStock          Capability = "adjust_stock"
	CapManageOrders         Capability = "manage_orders"
	CapAssignOrders         Capability = "assign_orders"
	CapSetPendingLimit      Capability = "set_pending_limit"
	CapViewAnyClientFinance Capability = "view_any_client_finance"
	CapViewReports          Capability = "view_reports"
	CapViewAllOrders        Capability = "view_all_orders"
	CapRunReconcile         Capability = "run_reconcile"
)

var permissions = map[Role]map[Capability]bool{
	RoleCustomer:     {CapPlaceOwnOrder: true},
	RoleRetailer:     {CapPlaceOwnOrder: true},
	RoleBeautyParlor: {CapPlaceOwnOrder: true},
	RoleSalesman: {
		CapCreateOrderForClient: true,
		CapViewAnyClientFinance: true,
	},
	RoleSubAdmin: {
		CapRecordPayment:        true,
		CapAdjustStock:          true,
		CapManageOrders:         true,
		CapViewAnyClientFinance: true,
		CapViewReports:          true,
		CapViewAllOrders:        true,
	},
	RoleAdmin: {
		CapRecordPayment:        true,
		CapAdjustStock:          true,
		CapManageOrders:         true,
		CapAssignOrders:         true,
		CapSetPendingLimit:      true,
		CapViewAnyClientFinance: true,
		CapViewReports:          true,
		CapViewAllOrders:        true,
		CapRunReconcile:         true,
	},
}

var ErrUnauthenticated = apperr.New(apperr.KindAuthorization, "unauthenticated", "authentication required")

func (a Actor) Can(c Capability) bool {
	return permissions[a.Role][c]
}

// Require returns an authorization error unless the actor holds c.
func Require(a Actor, c Capability) error {
	if a.Role == "" {
		return ErrUnauthenticated
	}
	if !a.Can(c) {
		return apperr.Forbidden("role %s may not %s", a.Role, c)
	}
	return nil
}
