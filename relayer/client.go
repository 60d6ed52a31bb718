package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gojek/heimdall/v7/httpclient"

	"github.com/corzoapp/transfer_service/config"
	"github.com/corzoapp/transfer_service/entity"
	wrapErrors "github.com/corzoapp/transfer_service/errors"
)

// WireAuthorization is the relayer's JSON shape: integers as decimal
// strings, nonce and signature as 0x hex.
type WireAuthorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

type SubmitRequest struct {
	Authorization WireAuthorization `json:"authorization"`
	Signature     string            `json:"signature"`
}

// EncodeAuthorization converts a signed authorization to the wire shape,
// shared by Submit and by the API layer's validated echo.
func EncodeAuthorization(signed *entity.SignedAuthorization) SubmitRequest {
	auth := signed.Authorization
	return SubmitRequest{
		Authorization: WireAuthorization{
			From:        auth.From,
			To:          auth.To,
			Value:       auth.Value.String(),
			ValidAfter:  strconv.FormatInt(auth.ValidAfter, 10),
			ValidBefore: strconv.FormatInt(auth.ValidBefore, 10),
			Nonce:       auth.NonceHex(),
		},
		Signature: signed.SignatureHex(),
	}
}

// SubmissionAck is the relayer's acceptance, with the raw response passed
// through for the caller.
type SubmissionAck struct {
	AuthorizationID string
	StatusCode      int
	Body            json.RawMessage
}

// StatusReply is the relayer's status record for a submission.
type StatusReply struct {
	AuthorizationID string `json:"authorizationId"`
	Status          string `json:"status"`
	TxHash          string `json:"txHash,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Client talks to the fee-paying relayer. The HTTP client enforces a
// bounded timeout and does not retry; retryability is the caller's
// decision based on the error kind.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
}

func New(cfg config.RelayerConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    httpclient.NewClient(httpclient.WithHTTPTimeout(cfg.Timeout)),
	}
}

func (c *Client) setHeaders(req *http.Request, originIP string) {
	req.Header.Set("X-Api-Key", c.apiKey)
	if originIP != "" {
		req.Header.Set("X-User-IP", originIP)
	}
}

// Submit posts a signed authorization. Three outcomes: transport failure
// (retryable), an explicit relayer rejection carrying the upstream reason
// (terminal for this authorization), or acceptance with the relayer's
// assigned id.
func (c *Client) Submit(ctx context.Context, signed *entity.SignedAuthorization, originIP string) (*SubmissionAck, error) {
	payload, err := json.Marshal(EncodeAuthorization(signed))
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "encode submission", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/submit", bytes.NewReader(payload))
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "build submit request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req, originIP)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeUpstreamUnavailable, "submit to relayer", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeUpstreamUnavailable, "read relayer response", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, classifyRejection(res.StatusCode, body)
	}

	var ack struct {
		AuthorizationID string `json:"authorizationId"`
	}
	if err := json.Unmarshal(body, &ack); err != nil || ack.AuthorizationID == "" {
		// a 2xx without an id is an upstream fault worth retrying
		return nil, wrapErrors.New(wrapErrors.CodeUpstreamUnavailable, "submit to relayer", "response missing authorizationId")
	}
	return &SubmissionAck{
		AuthorizationID: ack.AuthorizationID,
		StatusCode:      res.StatusCode,
		Body:            json.RawMessage(body),
	}, nil
}

// Status fetches the relayer's record for an authorization id.
func (c *Client) Status(ctx context.Context, authorizationID, originIP string) (*StatusReply, error) {
	url := fmt.Sprintf("%s/v1/status/%s", c.baseURL, authorizationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "build status request", err)
	}
	c.setHeaders(req, originIP)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeUpstreamUnavailable, "query relayer status", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeUpstreamUnavailable, "read relayer status", err)
	}

	if res.StatusCode == http.StatusNotFound {
		return nil, wrapErrors.New(wrapErrors.CodeNotFound, "query relayer status", "unknown authorization id")
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, classifyRejection(res.StatusCode, body)
	}

	var reply StatusReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeUpstreamUnavailable, "decode relayer status", err)
	}
	return &reply, nil
}

// classifyRejection distinguishes a definitive relayer decision (error
// body with a stated reason, e.g. duplicate nonce) from a server-side
// fault that the caller may retry.
func classifyRejection(statusCode int, body []byte) error {
	var errBody struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	reason := ""
	if err := json.Unmarshal(body, &errBody); err == nil {
		reason = errBody.Error
		if reason == "" {
			reason = errBody.Message
		}
	}
	if reason != "" {
		return wrapErrors.New(wrapErrors.CodeUpstreamRejected, "relayer rejected", reason)
	}
	if statusCode >= 500 {
		return wrapErrors.New(wrapErrors.CodeUpstreamUnavailable, "relayer error",
			"http "+strconv.Itoa(statusCode))
	}
	return wrapErrors.New(wrapErrors.CodeUpstreamRejected, "relayer rejected",
		"http "+strconv.Itoa(statusCode))
}
