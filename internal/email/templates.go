package email

// Kind selects the notification template. The fulfillment service picks the
// kind that matches the semantic of a transition: a shipment email is only
// meaningful with a tracking number attached.
type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindStatusUpdate      Kind = "status_update"
	KindShipment          Kind = "shipment"
	KindReturnReceived    Kind = "return_received"
	KindReturnResolved    Kind = "return_resolved"
)

var templates = map[Kind]struct {
	subject string
	text    string
}{
	KindOrderConfirmation: {
		subject: "Your EmberBean order {{.OrderNumber}} is confirmed",
		text: `Thanks for your order!

Order {{.OrderNumber}} — total {{.TotalDisplay}}.
We'll email you again when it ships.
`,
	},
	KindStatusUpdate: {
		subject: "Update on order {{.OrderNumber}}",
		text: `Your order {{.OrderNumber}} is now {{.Status}}.
{{if .Message}}
{{.Message}}
{{end}}`,
	},
	KindShipment: {
		subject: "Order {{.OrderNumber}} has shipped",
		text: `Good news — order {{.OrderNumber}} is on its way.

Carrier: {{.TrackingCarrier}}
Tracking number: {{.TrackingNumber}}
{{if .TrackingURL}}Track it here: {{.TrackingURL}}{{end}}
`,
	},
	KindReturnReceived: {
		subject: "We received your return request for order {{.OrderNumber}}",
		text: `We've received your return request for order {{.OrderNumber}}
and will review it shortly. Estimated refund: {{.RefundDisplay}}.
`,
	},
	KindReturnResolved: {
		subject: "Your return for order {{.OrderNumber}} was {{.Status}}",
		text: `Your return request for order {{.OrderNumber}} was {{.Status}}.
{{if .Message}}
{{.Message}}
{{end}}`,
	},
}
