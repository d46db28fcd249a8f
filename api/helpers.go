package api

import (
	"encoding/json"
	goerrors "errors"
	"net/http"

	"github.com/paydemo/backend/errors"
	"github.com/paydemo/backend/stripe"
	"go.vocdoni.io/dvote/log"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		errors.ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// stripeAPIError translates an error of the stripe package into the API
// error returned to the caller. Remote failures carry the Stripe message
// verbatim.
func stripeAPIError(err error) errors.Error {
	var stripeErr *stripe.StripeError
	if !goerrors.As(err, &stripeErr) {
		return errors.ErrGenericInternalServerError.WithErr(err)
	}
	switch stripeErr.Code {
	case stripe.CodeInvalidRequest:
		return errors.ErrInvalidData.With(stripeErr.Message)
	case stripe.CodeSessionNotFound:
		return errors.ErrCheckoutSessionNotFound.WithMessage(stripe.RemoteMessage(err))
	case stripe.CodeInvalidTransition:
		return errors.ErrGenericInternalServerError.WithErr(err)
	default:
		return errors.ErrPaymentProvider.WithMessage(stripe.RemoteMessage(err))
	}
}
