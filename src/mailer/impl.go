package mailer

import (
	"fmt"
	"log"
	"os"

	"festreg/src/lib"
	"festreg/src/models"
)

// SendRegistrationSummary mails the payer a summary of what was just
// registered, with the payment reference. Best-effort: a mail failure
// never fails the checkout.
func SendRegistrationSummary(to, name string, events []models.EventCatalogItem, visitorDays int, finalPrice float64, reference string) {
	from := os.Getenv("MAIL_FROM")
	if from == "" {
		log.Println("[mailer] MAIL_FROM not configured, skipping summary mail")
		return
	}
	body := fmt.Sprintf("Hi %s,\n\nYour festival registration has been received.\n\n", name)
	if len(events) > 0 {
		body += "Events:\n"
		for _, ev := range events {
			body += fmt.Sprintf("  - %s (%s)\n", ev.Title, ev.Price)
		}
	}
	if visitorDays > 0 {
		body += fmt.Sprintf("Visitor pass: %d day(s)\n", visitorDays)
	}
	body += fmt.Sprintf("\nAmount payable: %.2f\nPayment reference: %s\n\nSee you there!\n", finalPrice, reference)

	input := &lib.SendMailInput{
		From:     from,
		FromName: os.Getenv("MAIL_FROM_NAME"),
		To:       []string{to},
		Subject:  "Your festival registration",
		Body:     body,
	}
	if err := lib.SendMail(input); err != nil {
		log.Printf("[mailer] Could not send registration summary to %s: %s\n", to, err.Error())
	}
}
