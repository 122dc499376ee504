package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"festreg/src/lib"
	"festreg/src/types"
	"festreg/src/utils"

	"github.com/gin-gonic/gin"
)

// adminHandlers proxies the coordinator dashboard operations to the
// backend and performs on-site QR entry validation. Listing and
// filtering stay backend-side; this layer only forwards credentials and
// decodes scanned codes.
func adminHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/admin/registrations", func(ctx *gin.Context) {
			path := "/admin/registrations"
			if q := ctx.Request.URL.RawQuery; q != "" {
				path += "?" + q
			}
			raw, status, err := backendAPI().Forward(ctx.Request.Context(), http.MethodGet, path, ctx.GetHeader("Cookie"), nil)
			if err != nil {
				ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			ctx.Data(status, "application/json", raw)
		}).
		GET("/admin/registrations/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			raw, status, err := backendAPI().Forward(ctx.Request.Context(), http.MethodGet, fmt.Sprintf("/admin/registrations/%d", params.ID), ctx.GetHeader("Cookie"), nil)
			if err != nil {
				ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			ctx.Data(status, "application/json", raw)
		}).
		POST("/admin/email", func(ctx *gin.Context) {
			var body types.AdminEmailDispatchRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				log.Printf("Error validating request: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			// Explicit address lists go straight out through SMTP;
			// audience-based sends need the backend's recipient data.
			if len(body.Addresses) > 0 {
				input := &lib.SendMailInput{
					From:     os.Getenv("MAIL_FROM"),
					FromName: os.Getenv("MAIL_FROM_NAME"),
					To:       body.Addresses,
					Subject:  body.Subject,
					Body:     body.Body,
					Html:     body.Html,
				}
				if err := lib.SendMail(input); err != nil {
					log.Printf("Error sending dispatch mail: %s\n", err.Error())
					ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"sent": len(body.Addresses)})
				return
			}
			raw, status, err := backendAPI().Forward(ctx.Request.Context(), http.MethodPost, "/admin/send-email", ctx.GetHeader("Cookie"), body)
			if err != nil {
				ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			ctx.Data(status, "application/json", raw)
		}).
		POST("/admin/entry/allow", func(ctx *gin.Context) {
			entryActionHandler(ctx, "/admin/entry/allow")
		}).
		POST("/admin/entry/reset", func(ctx *gin.Context) {
			entryActionHandler(ctx, "/admin/entry/reset")
		})
	return g
}

// entryActionHandler decrypts a scanned QR payload and forwards the
// contained registration id to the backend entry endpoint.
func entryActionHandler(ctx *gin.Context, backendPath string) {
	var body types.EntryActionRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		log.Printf("Error validating request: %s\n", err.Error())
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	keyEnv := os.Getenv("API_QRC_SECRET")
	key, err := hex.DecodeString(keyEnv)
	if err != nil {
		log.Printf("Could not read key from string: %s\n", err.Error())
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	message, err := utils.DecryptMessage(key, body.Code)
	if err != nil {
		log.Printf("Error decrypting message: %s\n", err.Error())
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry code"})
		return
	}
	var rawData map[string]any
	if err := json.Unmarshal([]byte(*message), &rawData); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry code"})
		return
	}
	regId, ok := rawData["registrationId"].(float64)
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry code"})
		return
	}
	raw, status, err := backendAPI().Forward(ctx.Request.Context(), http.MethodPost, backendPath, ctx.GetHeader("Cookie"), gin.H{
		"registrationId": uint(regId),
	})
	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	ctx.Data(status, "application/json", raw)
}
