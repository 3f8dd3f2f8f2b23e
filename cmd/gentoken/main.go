package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

// Mints an ID token for an arbitrary uid, bypassing the password flow.
// Useful for poking at Firestore security rules as a specific user.
//
// FIREBASE_API_KEY=*** go run cmd/gentoken/main.go -uid <uid>
func main() {
	ctx := context.Background()
	uidPtr := flag.String("uid", "", "user uid to mint a token for")
	credentialsPtr := flag.String("credentials", "./service_account_key.json", "path to a service account key file")
	flag.Parse()

	if *uidPtr == "" {
		log.Fatalf("please provide a user uid using the -uid flag")
	}
	apiKey := os.Getenv("FIREBASE_API_KEY")
	if apiKey == "" {
		log.Fatalf("FIREBASE_API_KEY is not set")
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(*credentialsPtr))
	if err != nil {
		log.Fatalf("error initializing app: %v", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("error getting Auth client: %v", err)
	}

	customToken, err := client.CustomToken(ctx, *uidPtr)
	if err != nil {
		log.Fatalf("error creating custom token: %v", err)
	}

	// exchange the custom token for an ID token through the Identity Toolkit
	url := fmt.Sprintf("https://identitytoolkit.googleapis.com/v1/accounts:signInWithCustomToken?key=%s", apiKey)
	payload, err := json.Marshal(map[string]any{
		"token":             customToken,
		"returnSecureToken": true,
	})
	if err != nil {
		log.Fatalf("error marshaling payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("error building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("error making POST request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("error reading response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("non-OK HTTP status: %d, response: %s", resp.StatusCode, string(body))
	}

	var signInResp signInResponse
	if err := json.Unmarshal(body, &signInResp); err != nil {
		log.Fatalf("error unmarshalling response: %v", err)
	}

	fmt.Println(signInResp.IDToken)
}
