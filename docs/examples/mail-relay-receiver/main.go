// Hireline mail relay receiver example
//
// A minimal relay endpoint that verifies signed delivery requests from the
// Hireline mailer worker and prints the message instead of sending it.
//
// Usage:
//   export HIRELINE_RELAY_SECRET="the MAIL_RELAY_SECRET of the API"
//   go run main.go
//
// Then start the API with MAIL_RELAY_URL=http://your-host:9000/relay

package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

const replayWindow = 5 * time.Minute

// RelayMessage is the JSON body posted by the mailer worker.
type RelayMessage struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Template string `json:"template"`
	Body     string `json:"body"`
}

func main() {
	secret := os.Getenv("HIRELINE_RELAY_SECRET")
	if secret == "" {
		log.Fatal("HIRELINE_RELAY_SECRET environment variable is required")
	}

	http.HandleFunc("/relay", relayHandler(secret))
	http.HandleFunc("/health", healthHandler)

	log.Println("Starting mail relay receiver on :9000")
	log.Fatal(http.ListenAndServe(":9000", nil))
}

func relayHandler(secret string) http.HandlerFunc {
	// Deliveries are retried with the same id; remember which were printed.
	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
	)

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		signature := r.Header.Get("X-Hireline-Signature")
		timestamp := r.Header.Get("X-Hireline-Timestamp")
		deliveryID := r.Header.Get("X-Hireline-Delivery-Id")
		if signature == "" || timestamp == "" || deliveryID == "" {
			http.Error(w, "Missing signature headers", http.StatusUnauthorized)
			return
		}

		if err := verifySignature(secret, signature, timestamp, body, time.Now()); err != nil {
			log.Printf("Rejected delivery %s: %v", deliveryID, err)
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		var msg RelayMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		mu.Lock()
		duplicate := seen[deliveryID]
		seen[deliveryID] = true
		mu.Unlock()

		if !duplicate {
			log.Printf("Delivery %s (%s)", deliveryID, msg.Template)
			log.Printf("  From:    %s", msg.From)
			log.Printf("  To:      %s", msg.To)
			log.Printf("  Subject: %s", msg.Subject)
			log.Printf("  Body:\n%s", msg.Body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted", "id": deliveryID})
	}
}

// verifySignature checks the HMAC-SHA256 of "{timestamp}.{body}" and rejects
// timestamps outside the replay window.
func verifySignature(secret, signature, timestamp string, body []byte, now time.Time) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("bad timestamp: %w", err)
	}
	age := now.Sub(time.Unix(ts, 0))
	if age < -replayWindow || age > replayWindow {
		return fmt.Errorf("timestamp outside replay window")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
