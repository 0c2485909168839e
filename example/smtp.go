package main

import (
	"fmt"
	"net/smtp"
)

// Sends a small mix of spammy and ordinary messages to a locally running
// spamwatch so the dashboard has something to show.
func main() {
	addr := "127.0.0.1:1025"

	spam := []string{
		"WINNER!! Claim prize now at http://prizes.example.com/win",
		"Buy now: cheap viagra, limited time offer http://pill.example.net http://deal.example.org",
		"Congratulations, you won $5000 in the lottery! Act now!!",
	}
	ham := []string{
		"Lunch at noon tomorrow?",
		"Quarterly numbers are attached, see sheet two.",
		"Reminder: standup moved to 9:30.",
	}

	for i := 0; i < 10; i++ {
		var from, subject, body string
		if i%2 == 0 {
			from = "promo@deals.example.com"
			subject = fmt.Sprintf("Special offer #%d", i)
			body = spam[(i/2)%len(spam)]
		} else {
			from = "alice@corp.example.org"
			subject = fmt.Sprintf("Work note #%d", i)
			body = ham[(i/2)%len(ham)]
		}
		to := "inbox@spamwatch.local"
		message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", from, to, subject, body)

		if err := smtp.SendMail(addr, nil, from, []string{to}, []byte(message)); err != nil {
			panic(err)
		}
	}

	fmt.Println("sent 10 messages")
}
