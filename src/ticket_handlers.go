package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"

	"festreg/src/models"
	"festreg/src/types"
	"festreg/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/yeqown/go-qrcode"
)

// ticketHandlers covers the ticket-retrieval portal: OTP issuance and
// verification by mail, the registration/team tree lookup, and QR code
// display for entry.
func ticketHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/tickets/send-otp", func(ctx *gin.Context) {
			var body types.SendTicketOTPRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				log.Printf("Error validating request: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			raw, status, err := backendAPI().Forward(ctx.Request.Context(), http.MethodPost, "/api/send-ticket-otp", ctx.GetHeader("Cookie"), body)
			if err != nil {
				ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			ctx.Data(status, "application/json", raw)
		}).
		POST("/tickets/verify-otp", func(ctx *gin.Context) {
			var body types.VerifyTicketOTPRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				log.Printf("Error validating request: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			raw, status, err := backendAPI().Forward(ctx.Request.Context(), http.MethodPost, "/api/verify-ticket-otp", ctx.GetHeader("Cookie"), body)
			if err != nil {
				ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			ctx.Data(status, "application/json", raw)
		}).
		POST("/tickets/team", func(ctx *gin.Context) {
			var body types.TeamByEmailRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				log.Printf("Error validating request: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			raw, status, err := backendAPI().Forward(ctx.Request.Context(), http.MethodPost, "/api/team-by-email", ctx.GetHeader("Cookie"), body)
			if err != nil {
				ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			if status != http.StatusOK {
				ctx.Data(status, "application/json", raw)
				return
			}
			// Normalize the backend's tree so the portal always sees the
			// same registration shape regardless of backend version.
			var registration models.Registration
			if err := json.Unmarshal(raw, &registration); err != nil {
				log.Printf("Error decoding registration tree: %s\n", err.Error())
				ctx.Data(status, "application/json", raw)
				return
			}
			ctx.JSON(http.StatusOK, registration)
		}).
		GET("/tickets/qrcode/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			png, err := backendAPI().QRCodePNG(ctx.Request.Context(), ctx.GetHeader("Cookie"), params.ID)
			if err != nil {
				log.Printf("Error fetching qrcode [%d]: %s\n", params.ID, err.Error())
				ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			ctx.Data(http.StatusOK, "image/png", png)
		}).
		GET("/tickets/entry-code/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			rawData := map[string]any{
				"registrationId": params.ID,
			}
			rawBytes, _ := json.Marshal(rawData)

			keyEnv := os.Getenv("API_QRC_SECRET")
			key, err := hex.DecodeString(keyEnv)
			if err != nil {
				log.Printf("Could not read key from string: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			encryptedMessage, err := utils.EncryptMessage(key, string(rawBytes))
			if err != nil {
				log.Printf("Error encrypting message: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			qrc, err := qrcode.New(encryptedMessage)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			tempdir := os.Getenv("TEMP_DIR")
			filepath := path.Join(tempdir, fmt.Sprintf("entry-%d.jpeg", params.ID))
			if err := qrc.Save(filepath); err != nil {
				log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.FileAttachment(filepath, "entry-pass.jpeg")
		})
	return g
}
