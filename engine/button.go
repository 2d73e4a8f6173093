package engine

import (
	"errors"
	"strconv"
	"strings"
)

// ErrBadPayload marks a known button whose argument could not be parsed.
var ErrBadPayload = errors.New("malformed button payload")

// Tag is the closed set of button kinds.
type Tag int

const (
	TagUnknown Tag = iota
	TagMainMenu
	TagBrowse
	TagViewCart
	TagMyOrders
	TagSelectLanguage
	TagLanguage // arg: language code
	TagSelectProduct
	TagManageCart
	TagBackToBrowse
	TagRemoveItem
	TagCheckout
	TagAdminPanel
	TagAdminAddProduct
	TagAdminManageList
	TagAdminSelectProduct
	TagAdminEditPrice
	TagAdminToggleAvail
	TagAdminDeleteAsk
	TagAdminDeleteDo
	TagAdminClearAsk
	TagAdminClearDo
	TagAdminOrders
	TagAdminShoppingList
	TagAdminCompleteOrder
)

type argKind int

const (
	argNone argKind = iota
	argInt
	argStr
)

type tagFormat struct {
	prefix string
	arg    argKind
}

var tagFormats = map[Tag]tagFormat{
	TagMainMenu:           {"main_menu", argNone},
	TagBrowse:             {"browse", argNone},
	TagViewCart:           {"view_cart", argNone},
	TagMyOrders:           {"my_orders", argNone},
	TagSelectLanguage:     {"select_language", argNone},
	TagLanguage:           {"lang", argStr},
	TagSelectProduct:      {"sel", argInt},
	TagManageCart:         {"manage_cart", argNone},
	TagBackToBrowse:       {"back_to_browse", argNone},
	TagRemoveItem:         {"rm", argInt},
	TagCheckout:           {"checkout", argNone},
	TagAdminPanel:         {"admin_panel", argNone},
	TagAdminAddProduct:    {"admin_add", argNone},
	TagAdminManageList:    {"admin_manage", argNone},
	TagAdminSelectProduct: {"aprod", argInt},
	TagAdminEditPrice:     {"aprice", argNone},
	TagAdminToggleAvail:   {"avail", argInt},
	TagAdminDeleteAsk:     {"adel", argNone},
	TagAdminDeleteDo:      {"adel_do", argNone},
	TagAdminClearAsk:      {"admin_clear", argNone},
	TagAdminClearDo:       {"admin_clear_do", argNone},
	TagAdminOrders:        {"admin_orders", argNone},
	TagAdminShoppingList:  {"admin_shopping", argNone},
	TagAdminCompleteOrder: {"adone", argInt},
}

var tagByPrefix = func() map[string]Tag {
	m := make(map[string]Tag, len(tagFormats))
	for tag, f := range tagFormats {
		m[f.prefix] = tag
	}
	return m
}()

func (t Tag) String() string {
	if f, ok := tagFormats[t]; ok {
		return f.prefix
	}
	return "unknown"
}

// Button is a parsed callback payload. Err is set when the tag is known but
// its argument is malformed; handlers then re-render the current view.
type Button struct {
	Tag Tag
	Arg int64
	Str string
	Err error
}

// Data encodes a button without argument.
func Data(tag Tag) string {
	return tagFormats[tag].prefix
}

// DataInt encodes a button with a numeric argument, e.g. "sel:17".
func DataInt(tag Tag, n int64) string {
	return tagFormats[tag].prefix + ":" + strconv.FormatInt(n, 10)
}

// DataStr encodes a button with a string argument, e.g. "lang:en".
func DataStr(tag Tag, s string) string {
	return tagFormats[tag].prefix + ":" + s
}

// ParseButton decodes callback data. Unknown prefixes yield TagUnknown.
func ParseButton(data string) Button {
	prefix, arg, hasArg := strings.Cut(data, ":")
	tag, ok := tagByPrefix[prefix]
	if !ok {
		return Button{Tag: TagUnknown, Str: data}
	}
	b := Button{Tag: tag}
	switch tagFormats[tag].arg {
	case argNone:
		if hasArg {
			b.Err = ErrBadPayload
		}
	case argInt:
		n, err := strconv.ParseInt(arg, 10, 64)
		if !hasArg || err != nil {
			b.Err = ErrBadPayload
			break
		}
		b.Arg = n
	case argStr:
		if !hasArg || arg == "" {
			b.Err = ErrBadPayload
			break
		}
		b.Str = arg
	}
	return b
}
