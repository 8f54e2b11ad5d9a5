// Package intent maps normalized inbound messages to symbolic intents with
// extracted parameters. Parsing is pure: no I/O, no store access, the same
// input always yields the same intent.
package intent

// Intent identifies what the sender is asking for, independent of role.
type Intent string

// Intents recognized by the parser.
const (
	IntentMenu           Intent = "MENU"
	IntentCreateDelivery Intent = "CREATE_DELIVERY"
	IntentAssignRider    Intent = "ASSIGN_RIDER"
	IntentStatus         Intent = "STATUS"
	IntentSummary        Intent = "SUMMARY"
	IntentListRiders     Intent = "LIST_RIDERS"
	IntentCancel         Intent = "CANCEL"
	IntentExport         Intent = "EXPORT"
	IntentHelp           Intent = "HELP"
	IntentAccept         Intent = "ACCEPT"
	IntentDecline        Intent = "DECLINE"
	IntentPickedUp       Intent = "PICKED_UP"
	IntentInTransit      Intent = "IN_TRANSIT"
	IntentArrived        Intent = "ARRIVED"
	IntentConfirm        Intent = "CONFIRM_RECEIPT"
	IntentReportIssue    Intent = "REPORT_ISSUE"
	IntentRate           Intent = "RATE"
	IntentLocationShared Intent = "LOCATION_SHARED"
	IntentUnknown        Intent = "UNKNOWN"
)

// Params carries values extracted alongside an intent. Fields are zero when
// the input did not provide them.
type Params struct {
	SessionID     string
	RiderID       string
	RefCode       string
	Destination   string
	CustomerName  string
	CustomerPhone string
	Rating        int
	Latitude      float64
	Longitude     float64
	Address       string

	// Raw preserves the original text for logging and for routers that
	// interpret free input against a pending conversation action.
	Raw string
}

// Result is the output of Parse.
type Result struct {
	Intent Intent
	Params Params
}
