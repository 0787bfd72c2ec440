// CLI tool to create a doctor or patient with a bcrypt-hashed password.
// Patients also get an empty profile row for the doctor to fill in.
// Usage: go run ./cmd/create-user (from the repository root)
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// parseRole normalizes the role answer; empty means patient.
func parseRole(s string) (string, error) {
	switch r := strings.ToLower(strings.TrimSpace(s)); r {
	case "", "patient", "p":
		return "patient", nil
	case "doctor", "d":
		return "doctor", nil
	default:
		return "", fmt.Errorf("unknown role %q (use doctor or patient)", s)
	}
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	s, _ := reader.ReadString('\n')
	return strings.TrimSpace(s)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, os.Getenv("DB_URL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	reader := bufio.NewReader(os.Stdin)

	username := prompt(reader, "Username: ")
	email := prompt(reader, "Email: ")
	password := prompt(reader, "Password: ")
	role, err := parseRole(prompt(reader, "Role (doctor/patient) [patient]: "))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	var fullName string
	if role == "patient" {
		fullName = prompt(reader, "Full name: ")
	}

	if username == "" || password == "" {
		fmt.Fprintln(os.Stderr, "Username and password are required")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
		os.Exit(1)
	}

	authToken := uuid.New().String()

	tx, err := conn.Begin(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting transaction: %v\n", err)
		os.Exit(1)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var userID int
	err = tx.QueryRow(ctx,
		`INSERT INTO users (username, email, role, password, auth_token)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		username, email, role, string(hash), authToken,
	).Scan(&userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating user: %v\n", err)
		os.Exit(1)
	}

	if role == "patient" {
		var name *string
		if fullName != "" {
			name = &fullName
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO patient_profiles (user_id, full_name) VALUES ($1, $2)`, userID, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating patient profile: %v\n", err)
			os.Exit(1)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error committing: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nUser created successfully!\n")
	fmt.Printf("  ID:         %d\n", userID)
	fmt.Printf("  Username:   %s\n", username)
	fmt.Printf("  Role:       %s\n", role)
	fmt.Printf("  Auth Token: %s\n", authToken)
}
