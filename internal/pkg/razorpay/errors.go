package razorpay

import "errors"

var (
	// ErrGatewayUnavailable means the gateway could not be reached or
	// returned a server error; the caller may retry with the same receipt.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrOrderRejected means the gateway rejected the order request itself;
	// retrying with the same parameters will not help.
	ErrOrderRejected = errors.New("payment gateway rejected order")
)
