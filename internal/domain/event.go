package domain

// CheckoutCompleted is the verified payload of a completed hosted checkout
// session, reduced to the fields fulfillment needs. Handlers build it from
// the processor event after signature verification.
type CheckoutCompleted struct {
	EventID          string
	SessionID        string
	AmountTotalCents int64
	Currency         string
	CustomerEmail    string
	CustomerName     string

	// Raw catalog reference from session metadata. Kept unparsed so that a
	// reference pointing at nothing is a flagged order, not a rejected
	// webhook.
	RawCatalogType string
	RawCatalogID   string
}

// Validate fails closed: a payload missing any field fulfillment depends on
// is rejected before it reaches the pipeline. Note the catalog reference
// only has to be present here; whether it resolves is decided inside the
// fulfillment transaction.
func (e CheckoutCompleted) Validate() error {
	const op = "webhook.parse"

	if e.SessionID == "" {
		return Invalid(op, "session id missing from event payload")
	}
	if e.AmountTotalCents <= 0 {
		return Invalid(op, "amount total missing or not positive")
	}
	if e.Currency == "" {
		return Invalid(op, "currency missing from event payload")
	}
	if e.RawCatalogType == "" {
		return Invalid(op, "catalog_type missing from session metadata")
	}
	if e.RawCatalogID == "" {
		return Invalid(op, "catalog_id missing from session metadata")
	}
	return nil
}

// Ref parses the catalog reference carried in the session metadata.
// A malformed reference (unknown type, non-UUID id) is returned as an
// EINVALID error; callers treat it as unresolvable.
func (e CheckoutCompleted) Ref() (CatalogRef, error) {
	return ParseCatalogRef(e.RawCatalogType, e.RawCatalogID)
}
