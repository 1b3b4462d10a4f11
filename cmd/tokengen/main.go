// Package main provides a CLI tool for generating bearer tokens for a local
// hearth server. Tokens are signed with the dev key unless -key is given.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	jwttoken "hearth/internal/jwt_token"
	"hearth/internal/platform/config"
	id "hearth/pkg/domain"
)

const (
	defaultIssuer   = "hearth"
	defaultTokenTTL = time.Hour
)

type tokenOutput struct {
	Token     string            `json:"token"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]any    `json:"claims"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	fs := flag.NewFlagSet("tokengen", flag.ExitOnError)
	userID := fs.String("user-id", "", "User ID (UUID). Generated if empty.")
	tenantID := fs.String("tenant-id", "", "Tenant ID (UUID). Omit for a personal token.")
	ttl := fs.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	key := fs.String("key", config.DevSigningKey, "HS256 signing key (JWT_SIGNING_KEY)")
	issuer := fs.String("issuer", defaultIssuer, "Token issuer (JWT_ISSUER)")
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	fs.SetOutput(os.Stdout)
	fs.Usage = func() {
		printUsage()
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	uid := id.UserID(parseOrGenerateUUID(*userID, "user-id"))
	var tenant id.TenantRef
	if *tenantID != "" {
		tid := id.TenantID(parseOrGenerateUUID(*tenantID, "tenant-id"))
		tenant = tid.Ref()
	}

	svc := jwttoken.NewJWTService(*key, *issuer, *ttl)
	token, err := svc.GenerateAccessToken(uid, tenant)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		claims := map[string]any{"sub": uid.String(), "iss": *issuer}
		if tenant != nil {
			claims["tenant_id"] = tenant.String()
		}
		printJSON(tokenOutput{
			Token:     token,
			ExpiresIn: ttl.String(),
			Claims:    claims,
			Usage:     map[string]string{"header": "Authorization: Bearer <token>"},
		})
		return
	}

	fmt.Println("Access Token (JWT)")
	fmt.Println("==================")
	fmt.Printf("Expires In:  %s\n", *ttl)
	fmt.Printf("User ID:     %s\n", uid)
	if tenant != nil {
		fmt.Printf("Tenant ID:   %s\n", tenant)
	} else {
		fmt.Println("Tenant ID:   (personal)")
	}
	fmt.Println()
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/v1/modules")
}

func printUsage() {
	fmt.Println(`tokengen - Generate bearer tokens for a local hearth server

WARNING: The default key is the development key and is refused in production.

Usage:
  tokengen [flags]

Examples:
  # Personal token for a fresh user
  tokengen

  # Token for an existing member of a household
  tokengen -user-id 550e8400-e29b-41d4-a716-446655440000 -tenant-id aaaa0000-0000-0000-0000-000000000001

  # Output as JSON
  tokengen -json

Flags:`)
}

func parseOrGenerateUUID(input, fieldName string) uuid.UUID {
	if input == "" {
		return uuid.New()
	}
	parsed, err := uuid.Parse(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid %s UUID: %s\n", fieldName, input)
		os.Exit(1)
	}
	return parsed
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
