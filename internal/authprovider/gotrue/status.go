package gotrue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/openkcm/admin-console/internal/authprovider"
)

// errSessionInvalid reports that the server no longer recognises the token.
var errSessionInvalid = errors.New("session is not valid on the auth server")

// serverError is the error body GoTrue returns. Older releases use
// error/error_description, newer ones code/msg.
type serverError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Code             any    `json:"code"`
	Msg              string `json:"msg"`
}

func (e serverError) String() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.ErrorDescription != "":
		return e.ErrorDescription
	default:
		return e.Error
	}
}

func classify(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return errSessionInvalid
	}

	err := fmt.Errorf("auth server responded with %d%s", resp.StatusCode, describe(resp))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return errors.Join(authprovider.ErrUnavailable, err)
	}

	return errors.Join(authprovider.ErrRejected, err)
}

func describe(resp *http.Response) string {
	var body serverError
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body); err != nil {
		return ""
	}

	if msg := body.String(); msg != "" {
		return ": " + msg
	}

	return ""
}
