package session

import "fmt"

// State is a conversation state within a flow.
type State int

// End terminates the active flow and returns the user to the main menu.
const End State = -1

const (
	StateIdle State = iota
	SelectLanguage
	Browsing
	SelectingQuantity
	ViewingCart
	AdminPanel
	AdminAddName
	AdminAddPrice
	AdminManageList
	AdminManageOptions
	AdminEditPrice
	AdminDeleteConfirm
	AdminClearConfirm
)

var stateNames = map[State]string{
	End:                "END",
	StateIdle:          "IDLE",
	SelectLanguage:     "SELECT_LANGUAGE",
	Browsing:           "BROWSING",
	SelectingQuantity:  "SELECTING_QUANTITY",
	ViewingCart:        "VIEWING_CART",
	AdminPanel:         "ADMIN_PANEL",
	AdminAddName:       "ADMIN_ADD_NAME",
	AdminAddPrice:      "ADMIN_ADD_PRICE",
	AdminManageList:    "ADMIN_MANAGE_LIST",
	AdminManageOptions: "ADMIN_MANAGE_OPTIONS",
	AdminEditPrice:     "ADMIN_EDIT_PRICE",
	AdminDeleteConfirm: "ADMIN_DELETE_CONFIRM",
	AdminClearConfirm:  "ADMIN_CLEAR_CONFIRM",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// FlowID names one independent conversation machine.
type FlowID int

const (
	FlowNone FlowID = iota
	FlowLanguage
	FlowOrder
	FlowAdmin
	FlowAdminAdd
	FlowAdminManage
	FlowAdminClear
)

func (f FlowID) String() string {
	switch f {
	case FlowNone:
		return "none"
	case FlowLanguage:
		return "language"
	case FlowOrder:
		return "order"
	case FlowAdmin:
		return "admin"
	case FlowAdminAdd:
		return "admin_add_product"
	case FlowAdminManage:
		return "admin_manage_product"
	case FlowAdminClear:
		return "admin_clear_orders"
	default:
		return fmt.Sprintf("Flow(%d)", int(f))
	}
}
