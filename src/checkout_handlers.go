package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"festreg/src/boot"
	"festreg/src/checkout"
	"festreg/src/config"
	"festreg/src/payment"
	"festreg/src/store"
	"festreg/src/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionCookie = "checkout_session"

// checkoutSession pairs the per-tab state machine with the payment
// bookkeeping that must not be persisted: in-flight flag and last
// result. Losing this on restart mirrors a page reload — text state
// comes back from the store, files and promo do not.
type checkoutSession struct {
	machine *checkout.Machine

	mu         sync.Mutex
	processing bool
	lastResult *payment.Result
	touched    time.Time
}

func (s *checkoutSession) touch() {
	s.mu.Lock()
	s.touched = time.Now()
	s.mu.Unlock()
}

var checkoutSessions sync.Map

func getCheckoutSession(ctx *gin.Context) (*checkoutSession, error) {
	id, err := ctx.Cookie(sessionCookie)
	if err != nil || id == "" {
		return nil, errors.New("no checkout session")
	}
	if v, ok := checkoutSessions.Load(id); ok {
		s := v.(*checkoutSession)
		s.touch()
		return s, nil
	}
	m := checkout.NewMachine(id, boot.GetCatalog(), store.New(id))
	m.Hydrate()
	s := &checkoutSession{machine: m, touched: time.Now()}
	actual, _ := checkoutSessions.LoadOrStore(id, s)
	kept := actual.(*checkoutSession)
	kept.touch()
	return kept, nil
}

// sweepCheckoutSessions drops in-memory sessions whose store entries have
// already expired. Files and payment results for them are unrecoverable
// anyway; a returning tab gets a fresh hydrate from an empty store.
func sweepCheckoutSessions() {
	cutoff := time.Now().Add(-config.CHECKOUT_SESSION_TTL)
	checkoutSessions.Range(func(key, value any) bool {
		s := value.(*checkoutSession)
		s.mu.Lock()
		stale := !s.processing && s.touched.Before(cutoff)
		s.mu.Unlock()
		if stale {
			checkoutSessions.Delete(key)
		}
		return true
	})
}

func checkoutStateResponse(s *checkoutSession) gin.H {
	m := s.machine
	st := m.Snapshot()
	groups := st.FieldGroups(m.Catalog)
	schemas := make(map[string][]checkout.Field, len(groups))
	for _, g := range groups {
		schemas[g.Signature()] = g.Fields()
	}
	return gin.H{
		"step":           m.Step(),
		"state":          st,
		"selectedEvents": m.SelectedEvents(),
		"fieldGroups":    schemas,
		"totalPrice":     checkout.FormatPrice(m.TotalPrice()),
		"finalPrice":     checkout.FormatPrice(m.FinalPrice()),
	}
}

func checkoutHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/checkout/session", func(ctx *gin.Context) {
			id := uuid.NewString()
			ctx.SetCookie(sessionCookie, id, 0, "/", "", false, true)
			m := checkout.NewMachine(id, boot.GetCatalog(), store.New(id))
			m.Hydrate()
			s := &checkoutSession{machine: m, touched: time.Now()}
			checkoutSessions.Store(id, s)
			ctx.JSON(http.StatusCreated, checkoutStateResponse(s))
		}).
		GET("/checkout/state", func(ctx *gin.Context) {
			s, err := getCheckoutSession(ctx)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, checkoutStateResponse(s))
		}).
		PATCH("/checkout/state", func(ctx *gin.Context) {
			s, err := getCheckoutSession(ctx)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			var partial checkout.Partial
			if err := ctx.ShouldBindJSON(&partial); err != nil {
				log.Printf("Error validating request: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			s.machine.Update(partial)
			ctx.JSON(http.StatusOK, checkoutStateResponse(s))
		}).
		POST("/checkout/advance", func(ctx *gin.Context) {
			s, err := getCheckoutSession(ctx)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			errMap, err := s.machine.Advance()
			if err != nil {
				if errors.Is(err, checkout.ErrValidationFailed) {
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{
						"error":      err.Error(),
						"errors":     errMap,
						"errorCount": errMap.Count(),
					})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, checkoutStateResponse(s))
		}).
		POST("/checkout/back", func(ctx *gin.Context) {
			s, err := getCheckoutSession(ctx)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			s.machine.Back()
			ctx.JSON(http.StatusOK, checkoutStateResponse(s))
		}).
		POST("/checkout/files", func(ctx *gin.Context) {
			s, err := getCheckoutSession(ctx)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			signature := ctx.PostForm("signature")
			field := ctx.PostForm("field")
			if signature == "" || field == "" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "signature and field are required"})
				return
			}
			fh, err := ctx.FormFile("file")
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			f, err := fh.Open()
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			defer f.Close()
			content, err := io.ReadAll(f)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			attachment := &checkout.FileAttachment{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Content:     content,
			}
			if memberIndex := ctx.PostForm("memberIndex"); memberIndex != "" {
				idx, err := strconv.Atoi(memberIndex)
				if err != nil || idx < 0 {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid member index"})
					return
				}
				s.machine.AttachMemberFile(signature, idx, attachment)
			} else {
				s.machine.AttachFile(signature, field, attachment)
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/checkout/promo", func(ctx *gin.Context) {
			s, err := getCheckoutSession(ctx)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			var body types.ApplyPromoRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				log.Printf("Error validating request: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			m := s.machine
			st := m.Snapshot()
			in := payment.Input{
				State:          st,
				Groups:         st.FieldGroups(m.Catalog),
				SelectedEvents: m.SelectedEvents(),
			}
			payer, err := payment.ExtractPayer(&in)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			out, err := backendAPI().ValidatePromo(ctx.Request.Context(), ctx.GetHeader("Cookie"), types.PromoValidateRequestBody{
				Code:        body.Code,
				UserEmail:   payer.Email,
				OrderAmount: m.TotalPrice(),
			})
			if err != nil {
				ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			if !out.Success {
				m.ClearPromo()
				ctx.JSON(http.StatusOK, gin.H{
					"success":    false,
					"message":    out.Message,
					"finalPrice": checkout.FormatPrice(m.FinalPrice()),
				})
				return
			}
			// Re-applying a code replaces the discount, never stacks it.
			m.ApplyPromo(checkout.AppliedPromo{
				Code:           body.Code,
				DiscountAmount: out.DiscountAmount,
				Message:        out.Message,
			})
			ctx.JSON(http.StatusOK, gin.H{
				"success":        true,
				"message":        out.Message,
				"discountAmount": out.DiscountAmount,
				"finalPrice":     checkout.FormatPrice(m.FinalPrice()),
			})
		}).
		DELETE("/checkout/promo", func(ctx *gin.Context) {
			s, err := getCheckoutSession(ctx)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			s.machine.ClearPromo()
			ctx.JSON(http.StatusOK, checkoutStateResponse(s))
		}).
		POST("/checkout/payment", func(ctx *gin.Context) {
			initiatePaymentHandler(ctx, false)
		}).
		POST("/checkout/payment/retry", func(ctx *gin.Context) {
			initiatePaymentHandler(ctx, true)
		}).
		GET("/checkout/payment/status", func(ctx *gin.Context) {
			s, err := getCheckoutSession(ctx)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.processing {
				ctx.JSON(http.StatusOK, gin.H{"status": types.PAYMENT_PROCESSING})
				return
			}
			if s.lastResult == nil {
				ctx.JSON(http.StatusOK, gin.H{"status": types.PAYMENT_IDLE})
				return
			}
			ctx.JSON(http.StatusOK, s.lastResult)
		}).
		DELETE("/checkout/session", func(ctx *gin.Context) {
			s, err := getCheckoutSession(ctx)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			s.machine.Close()
			checkoutSessions.Delete(s.machine.SessionID)
			ctx.SetCookie(sessionCookie, "", -1, "/", "", false, true)
			ctx.Status(http.StatusNoContent)
		})
	return g
}

// initiatePaymentHandler runs the payment sequence once. A retry is the
// same full sequence from the top; the trigger stays disabled while a
// run is in flight so the same session cannot double-submit.
func initiatePaymentHandler(ctx *gin.Context, retry bool) {
	s, err := getCheckoutSession(ctx)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	m := s.machine
	if m.Step() != checkout.STEP_PAYMENT {
		ctx.JSON(http.StatusConflict, gin.H{"error": "checkout is not at the payment step"})
		return
	}

	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		ctx.JSON(http.StatusConflict, gin.H{"status": types.PAYMENT_PROCESSING})
		return
	}
	if !retry && s.lastResult != nil && s.lastResult.Status == types.PAYMENT_SUCCESS {
		result := s.lastResult
		s.mu.Unlock()
		ctx.JSON(http.StatusOK, result)
		return
	}
	s.processing = true
	s.mu.Unlock()

	st := m.Snapshot()
	in := payment.Input{
		State:          st,
		Groups:         st.FieldGroups(m.Catalog),
		SelectedEvents: m.SelectedEvents(),
		FinalPrice:     m.FinalPrice(),
		Files:          m.Files(),
		MemberFiles:    m.MemberFiles(),
	}
	orch := payment.NewOrchestrator(ctx.GetHeader("Cookie"))
	result := orch.Initiate(ctx.Request.Context(), &in)

	s.mu.Lock()
	s.processing = false
	s.lastResult = &result
	s.mu.Unlock()

	if result.Status == types.PAYMENT_SUCCESS {
		if payer, err := payment.ExtractPayer(&in); err == nil {
			go mailSummary(payer, &in, &result)
		}
		ctx.JSON(http.StatusOK, result)
		return
	}
	ctx.JSON(http.StatusBadGateway, result)
}
