// Package policy is the single authorization decision point. Handlers and
// services describe what they want to do and on whose data; Authorize decides.
package policy

import (
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
)

// Action names an operation subject to authorization.
type Action string

const (
	OrderCreate      Action = "order.create"
	OrderView        Action = "order.view"
	OrderEditDetails Action = "order.edit_details"
	OrderAdvance     Action = "order.advance"
	OrderCancel      Action = "order.cancel"
	PaymentRecord    Action = "payment.record"
	PaymentView      Action = "payment.view"
	PaymentRefund    Action = "payment.refund"
	VendorCreate     Action = "vendor.create"
	VendorManage     Action = "vendor.manage"
	CommunityManage  Action = "community.manage"
	DashboardGlobal  Action = "dashboard.global"
	DashboardUser    Action = "dashboard.user"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID      uuid.UUID
	Role        enums.UserRole
	CommunityID *uuid.UUID
}

// IsMaster reports whether the actor holds the platform-wide role.
func (a Actor) IsMaster() bool {
	return a.Role == enums.UserRoleMaster
}

// Resource describes ownership of the data an action touches. Zero values
// mean "no owner" and never match an actor.
type Resource struct {
	OwnerUserID     uuid.UUID
	VendorAccountID *uuid.UUID
}

func (r Resource) ownedBy(a Actor) bool {
	return r.OwnerUserID != uuid.Nil && r.OwnerUserID == a.UserID
}

func (r Resource) operatedBy(a Actor) bool {
	return a.Role == enums.UserRoleVendor &&
		r.VendorAccountID != nil &&
		*r.VendorAccountID != uuid.Nil &&
		*r.VendorAccountID == a.UserID
}

type rule func(Actor, Resource) bool

func master(a Actor, _ Resource) bool { return a.IsMaster() }

func role(want enums.UserRole) rule {
	return func(a Actor, _ Resource) bool { return a.Role == want }
}

func owner(a Actor, r Resource) bool { return r.ownedBy(a) }

func vendorAccount(a Actor, r Resource) bool { return r.operatedBy(a) }

var rules = map[Action][]rule{
	OrderCreate:      {role(enums.UserRoleUser)},
	OrderView:        {master, owner, vendorAccount},
	OrderEditDetails: {master, owner, vendorAccount},
	OrderAdvance:     {master, vendorAccount},
	OrderCancel:      {master, owner},
	PaymentRecord:    {master, owner},
	PaymentView:      {master, owner},
	PaymentRefund:    {master, owner},
	VendorCreate:     {master},
	VendorManage:     {master, vendorAccount},
	CommunityManage:  {master},
	DashboardGlobal:  {master},
	DashboardUser:    {role(enums.UserRoleUser)},
}

// Authorize returns nil when actor may perform action on res, otherwise a
// PERMISSION_DENIED error. Unknown actions are denied.
func Authorize(actor Actor, action Action, res Resource) error {
	if actor.UserID == uuid.Nil || !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	for _, allow := range rules[action] {
		if allow(actor, res) {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodePermissionDenied, "not allowed to "+string(action))
}

// Allowed is the boolean form of Authorize.
func Allowed(actor Actor, action Action, res Resource) bool {
	return Authorize(actor, action, res) == nil
}

// TransitionAction maps a target order status to the action that guards it.
func TransitionAction(target enums.LaundryOrderStatus) Action {
	if target == enums.LaundryOrderStatusCancelled {
		return OrderCancel
	}
	return OrderAdvance
}

// OrderTransitionAction is TransitionAction for product orders.
func OrderTransitionAction(target enums.OrderStatus) Action {
	if target == enums.OrderStatusCancelled {
		return OrderCancel
	}
	return OrderAdvance
}
