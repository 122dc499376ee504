package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"festreg/src/checkout"
	"festreg/src/lib"
	"festreg/src/models"
	"festreg/src/types"

	"github.com/stretchr/testify/assert"
)

type parsedForm struct {
	values map[string]string
	files  map[string][]byte
}

func parseMultipart(contentType string, payload []byte) (*parsedForm, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, err
	}
	mr := multipart.NewReader(bytes.NewReader(payload), params["boundary"])
	form := &parsedForm{values: map[string]string{}, files: map[string][]byte{}}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return form, nil
		}
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(part)
		if err != nil {
			return nil, err
		}
		if part.FileName() != "" {
			form.files[part.FormName()] = content
		} else {
			form.values[part.FormName()] = string(content)
		}
	}
}

func bandjamGroup() checkout.Group {
	return checkout.Group{Kind: checkout.GROUP_TEAM, EventID: 1, Title: "BANDJAM"}
}

func paymentInput() *Input {
	group := bandjamGroup()
	sig := group.Signature()
	st := checkout.NewState()
	st.SelectedEventIDs = []uint{1}
	st.FormDataBySignature[sig] = map[string]string{
		"name":          "Asha Rao",
		"collegeMailId": "asha@college.edu",
		"phone":         "9876543210",
		"teamName":      "The Resistors",
	}
	st.TeamMembersBySignature[sig] = []map[string]string{
		{"name": "Member 1"},
		{"name": "Member 2"},
	}
	return &Input{
		State:          st,
		Groups:         []checkout.Group{group},
		SelectedEvents: []models.EventCatalogItem{{ID: 1, Title: "BANDJAM", Price: "₹1,500"}},
		FinalPrice:     1500,
		Files: map[string]map[string]*checkout.FileAttachment{
			sig: {"idCard": {Filename: "id.jpg", Content: []byte("leader")}},
		},
		MemberFiles: map[string]map[int]*checkout.FileAttachment{
			sig: {
				0: {Filename: "m0.jpg", Content: []byte("m0")},
				1: {Filename: "m1.jpg", Content: []byte("m1")},
			},
		},
	}
}

func newTestBackend(t *testing.T, orderResponse string, orderStatus int) (*httptest.Server, *int) {
	t.Helper()
	registrations := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		registrations++
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("name") == "" || r.FormValue("email") == "" || r.FormValue("password") == "" {
			http.Error(w, "missing leader fields", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/api/payments/create-order", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(orderStatus)
		w.Write([]byte(orderResponse))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	lib.NewBackendClient(&lib.BackendClient{BaseURL: srv.URL, Client: srv.Client()})
	t.Cleanup(func() { lib.NewBackendClient(nil) })
	return srv, &registrations
}

func TestInitiateSucceedsViaBackend(t *testing.T) {
	newTestBackend(t, `{"data":{"payment_session_id":"sess_123"}}`, http.StatusOK)

	orch := NewOrchestrator("")
	res := orch.Initiate(context.Background(), paymentInput())
	assert.Equal(t, types.PAYMENT_SUCCESS, res.Status)
	assert.Equal(t, "sess_123", res.SessionID)
	assert.Equal(t, ViaBackend, res.Via)
}

func TestInitiateFailsWithoutSessionID(t *testing.T) {
	newTestBackend(t, `{"data":{"orderId":"ord_9"}}`, http.StatusOK)

	orch := NewOrchestrator("")
	res := orch.Initiate(context.Background(), paymentInput())
	assert.Equal(t, types.PAYMENT_FAILED, res.Status)
	assert.Contains(t, res.Message, "session ID not received")
}

func TestInitiateFailsWhenOrderCreationRejected(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	newTestBackend(t, `{"error":"amount mismatch"}`, http.StatusBadRequest)

	orch := NewOrchestrator("")
	res := orch.Initiate(context.Background(), paymentInput())
	assert.Equal(t, types.PAYMENT_FAILED, res.Status)
	assert.Contains(t, res.Message, "order creation failed")
}

func TestRetryRerunsRegistration(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	_, registrations := newTestBackend(t, `{"error":"down"}`, http.StatusBadRequest)

	orch := NewOrchestrator("")
	in := paymentInput()
	res := orch.Initiate(context.Background(), in)
	assert.Equal(t, types.PAYMENT_FAILED, res.Status)
	res = orch.Initiate(context.Background(), in)
	assert.Equal(t, types.PAYMENT_FAILED, res.Status)
	// no partial-success tracking: each attempt re-registers
	assert.Equal(t, 2, *registrations)
}

func TestExtractSessionIDVariants(t *testing.T) {
	variants := []string{
		`{"data":{"paymentSessionId":"sess_a"}}`,
		`{"data":{"payment_session_id":"sess_a"}}`,
		`{"data":{"sessionId":"sess_a"}}`,
		`{"data":{"session_id":"sess_a"}}`,
		`{"paymentSessionId":"sess_a"}`,
		`{"session_id":"sess_a"}`,
	}
	for _, v := range variants {
		assert.Equal(t, "sess_a", ExtractSessionID([]byte(v)), v)
	}
	assert.Equal(t, "", ExtractSessionID([]byte(`{"data":{}}`)))
	assert.Equal(t, "", ExtractSessionID([]byte(`not json`)))
}

func TestExtractPayerPrefersEventForms(t *testing.T) {
	in := paymentInput()
	in.State.VisitorPassDetails = map[string]string{"name": "Visitor", "email": "v@mail.com"}
	payer, err := ExtractPayer(in)
	assert.NoError(t, err)
	assert.Equal(t, "Asha Rao", payer.Name)
	assert.Equal(t, "asha@college.edu", payer.Email)
}

func TestExtractPayerFallsBackToVisitorDetails(t *testing.T) {
	st := checkout.NewState()
	st.VisitorPassDays = 2
	st.VisitorPassDetails = map[string]string{
		"name":  "Visitor",
		"email": "v@mail.com",
		"phone": "9876543210",
	}
	payer, err := ExtractPayer(&Input{State: st})
	assert.NoError(t, err)
	assert.Equal(t, "Visitor", payer.Name)
	assert.Equal(t, "v@mail.com", payer.Email)
}

func TestExtractPayerErrorsWhenNothingPopulated(t *testing.T) {
	_, err := ExtractPayer(&Input{State: checkout.NewState()})
	assert.Error(t, err)
}

func TestBuildRegistrationFormLayout(t *testing.T) {
	in := paymentInput()
	payer := Payer{Name: "Asha Rao", Email: "asha@college.edu", Phone: "9876543210"}
	contentType, payload, err := BuildRegistrationForm(in, payer, "pw123")
	assert.NoError(t, err)

	form, err := parseMultipart(contentType, payload)
	assert.NoError(t, err)

	assert.Equal(t, "Asha Rao", form.values["name"])
	assert.Equal(t, "asha@college.edu", form.values["email"])
	assert.Equal(t, "pw123", form.values["password"])
	assert.Equal(t, "0", form.values["visitorPassDays"])

	var formData map[string]map[string]string
	assert.NoError(t, json.Unmarshal([]byte(form.values["formDataBySignature"]), &formData))
	sig := bandjamGroup().Signature()
	assert.Equal(t, "The Resistors", formData[sig]["teamName"])

	var summaries []map[string]any
	assert.NoError(t, json.Unmarshal([]byte(form.values["selectedEvents"]), &summaries))
	assert.Len(t, summaries, 1)
	assert.Equal(t, "BANDJAM", summaries[0]["title"])

	assert.Contains(t, form.files, "profileImage")
	assert.Contains(t, form.files, "memberImage__"+sig+"__0")
	assert.Contains(t, form.files, "memberImage__"+sig+"__1")
}

func TestOrderNoteListsEventsAndPasses(t *testing.T) {
	in := paymentInput()
	in.State.VisitorPassDays = 2
	note := OrderNote(in)
	assert.Contains(t, note, "BANDJAM")
	assert.Contains(t, note, "2 visitor pass day")
}
