package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/url"
	"strconv"

	"festreg/src/checkout"
	"festreg/src/config"
	"festreg/src/lib"
	"festreg/src/models"
	"festreg/src/types"
	"festreg/src/utils"

	"github.com/tidwall/gjson"
)

const (
	ViaBackend = "backend"
	ViaGateway = "gateway"
)

// Result is the observable outcome of one payment attempt. Via records
// which order-creation path succeeded so the fallback never goes
// unnoticed.
type Result struct {
	Status      types.PaymentStatus `json:"status"`
	Message     string              `json:"message,omitempty"`
	SessionID   string              `json:"paymentSessionId,omitempty"`
	CheckoutURL string              `json:"checkoutUrl,omitempty"`
	Via         string              `json:"via,omitempty"`
}

// Input is the validated snapshot the orchestrator consumes. Groups must
// be in derivation order; payer extraction depends on it.
type Input struct {
	State          checkout.State
	Groups         []checkout.Group
	SelectedEvents []models.EventCatalogItem
	FinalPrice     float64
	Files          map[string]map[string]*checkout.FileAttachment
	MemberFiles    map[string]map[int]*checkout.FileAttachment
}

type Payer struct {
	Name  string
	Email string
	Phone string
}

// ExtractPayer scans the form groups in order for the first one with a
// populated name and college email, falling back to the visitor-pass
// details when no event form has them.
func ExtractPayer(in *Input) (Payer, error) {
	for _, g := range in.Groups {
		values := in.State.FormDataBySignature[g.Signature()]
		if values["name"] != "" && values["collegeMailId"] != "" {
			return Payer{
				Name:  values["name"],
				Email: values["collegeMailId"],
				Phone: values["phone"],
			}, nil
		}
	}
	vd := in.State.VisitorPassDetails
	if vd["name"] != "" && vd["email"] != "" {
		return Payer{Name: vd["name"], Email: vd["email"], Phone: vd["phone"]}, nil
	}
	return Payer{}, errors.New("could not determine payer details from any form")
}

// Orchestrator drives registration, order creation and the checkout
// handoff against the festival backend. Every failure collapses into a
// failed Result; retrying re-runs the whole sequence.
type Orchestrator struct {
	Backend *lib.BackendClient
	Cookie  string
}

func NewOrchestrator(cookie string) *Orchestrator {
	return &Orchestrator{Backend: lib.GetBackendClient(), Cookie: cookie}
}

// Initiate runs the full payment sequence. No partial-success state is
// kept: a failure after registration re-registers on retry, which the
// backend is expected to tolerate.
func (o *Orchestrator) Initiate(ctx context.Context, in *Input) Result {
	payer, err := ExtractPayer(in)
	if err != nil {
		return failed(err)
	}

	password, err := utils.RandomPassword()
	if err != nil {
		return failed(err)
	}

	contentType, payload, err := BuildRegistrationForm(in, payer, password)
	if err != nil {
		return failed(fmt.Errorf("could not assemble registration payload: %w", err))
	}
	if _, err := o.Backend.Register(ctx, o.Cookie, contentType, payload); err != nil {
		return failed(err)
	}

	orderReq := types.CreateOrderRequestBody{
		Amount:        in.FinalPrice,
		Currency:      config.DEFAULT_CURRENCY,
		CustomerEmail: payer.Email,
		CustomerName:  payer.Name,
		CustomerPhone: payer.Phone,
		OrderNote:     OrderNote(in),
	}
	raw, err := o.Backend.CreateOrder(ctx, o.Cookie, orderReq)
	if err != nil {
		// Direct gateway fallback, only when credentials are configured
		// and never silently: the result names the path taken.
		if !lib.GatewayConfigured() {
			return failed(err)
		}
		log.Printf("[payment] Backend order creation failed, falling back to gateway: %s\n", err.Error())
		sessionID, checkoutURL, gwErr := lib.CreateGatewayCheckout(ctx, in.FinalPrice, orderReq.Currency, payer.Email, orderReq.OrderNote)
		if gwErr != nil {
			return failed(fmt.Errorf("backend failed (%s); gateway fallback failed (%s)", err.Error(), gwErr.Error()))
		}
		return Result{
			Status:      types.PAYMENT_SUCCESS,
			SessionID:   sessionID,
			CheckoutURL: checkoutURL,
			Via:         ViaGateway,
		}
	}

	sessionID := ExtractSessionID(raw)
	if sessionID == "" {
		return failed(errors.New("payment session ID not received from the backend"))
	}
	return Result{
		Status:    types.PAYMENT_SUCCESS,
		SessionID: sessionID,
		Via:       ViaBackend,
	}
}

func failed(err error) Result {
	log.Printf("[payment] %s\n", err.Error())
	return Result{Status: types.PAYMENT_FAILED, Message: err.Error()}
}

// sessionIDPaths covers every response shape the backend has used for
// the payment session identifier.
var sessionIDPaths = []string{
	"data.paymentSessionId",
	"data.payment_session_id",
	"data.sessionId",
	"data.session_id",
	"paymentSessionId",
	"payment_session_id",
	"sessionId",
	"session_id",
}

func ExtractSessionID(raw []byte) string {
	for _, path := range sessionIDPaths {
		if v := gjson.GetBytes(raw, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// OrderNote is the free-text summary attached to the payment order.
func OrderNote(in *Input) string {
	note := "Festival registration"
	for i, ev := range in.SelectedEvents {
		if i == 0 {
			note += ": "
		} else {
			note += ", "
		}
		note += ev.Title
	}
	if in.State.VisitorPassDays > 0 {
		note += fmt.Sprintf(" (+%d visitor pass day(s))", in.State.VisitorPassDays)
	}
	return note
}

// BuildRegistrationForm assembles the single multipart request the
// backend expects: flat leader fields, the nested structures as JSON
// strings, event summaries, visitor fields, the first available profile
// image and every member image under a deterministic key.
func BuildRegistrationForm(in *Input, payer Payer, password string) (contentType string, payload []byte, err error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"name":     payer.Name,
		"email":    payer.Email,
		"phone":    payer.Phone,
		"password": password,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", nil, err
		}
	}

	structured := map[string]any{
		"formDataBySignature":     in.State.FormDataBySignature,
		"teamMembersBySignature":  in.State.TeamMembersBySignature,
		"flagshipBenefitsByEvent": in.State.FlagshipBenefitsByEvent,
	}
	for k, v := range structured {
		raw, err := json.Marshal(v)
		if err != nil {
			return "", nil, err
		}
		if err := w.WriteField(k, string(raw)); err != nil {
			return "", nil, err
		}
	}

	summaries := make([]map[string]any, 0, len(in.SelectedEvents))
	for _, ev := range in.SelectedEvents {
		summaries = append(summaries, map[string]any{
			"id":    ev.ID,
			"title": ev.Title,
			"price": ev.Price,
		})
	}
	rawSummaries, err := json.Marshal(summaries)
	if err != nil {
		return "", nil, err
	}
	if err := w.WriteField("selectedEvents", string(rawSummaries)); err != nil {
		return "", nil, err
	}

	if err := w.WriteField("visitorPassDays", strconv.Itoa(in.State.VisitorPassDays)); err != nil {
		return "", nil, err
	}
	rawVisitor, err := json.Marshal(in.State.VisitorPassDetails)
	if err != nil {
		return "", nil, err
	}
	if err := w.WriteField("visitorPassDetails", string(rawVisitor)); err != nil {
		return "", nil, err
	}

	if profile := firstFile(in); profile != nil {
		part, err := w.CreateFormFile("profileImage", profile.Filename)
		if err != nil {
			return "", nil, err
		}
		if _, err := part.Write(profile.Content); err != nil {
			return "", nil, err
		}
	}

	for _, g := range in.Groups {
		sig := g.Signature()
		memberFiles := in.MemberFiles[sig]
		members := in.State.TeamMembersBySignature[sig]
		for i := range members {
			f := memberFiles[i]
			if f == nil {
				continue
			}
			key := fmt.Sprintf("memberImage__%s__%d", url.QueryEscape(sig), i)
			part, err := w.CreateFormFile(key, f.Filename)
			if err != nil {
				return "", nil, err
			}
			if _, err := part.Write(f.Content); err != nil {
				return "", nil, err
			}
		}
	}

	if err := w.Close(); err != nil {
		return "", nil, err
	}
	return w.FormDataContentType(), buf.Bytes(), nil
}

// firstFile walks the groups in derivation order and returns the first
// attachment found, the same pick the backend treats as the profile
// image.
func firstFile(in *Input) *checkout.FileAttachment {
	for _, g := range in.Groups {
		groupFiles := in.Files[g.Signature()]
		if f := groupFiles["idCard"]; f != nil {
			return f
		}
		for _, f := range groupFiles {
			if f != nil {
				return f
			}
		}
	}
	return nil
}
