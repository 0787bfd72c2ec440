package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a pre-computed bcrypt hash used when a login username isn't found.
// Running bcrypt against it (instead of returning early) keeps response time
// constant, preventing timing-based username enumeration.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy"), bcrypt.DefaultCost)

// login verifies username/password and returns the user's auth token and role.
// POST /api/login (public).
func (h *Handler) login(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	u, lookupErr := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE username = @username",
		pgx.NamedArgs{"username": body.Username})

	// Always run bcrypt to keep response time constant regardless of whether the
	// username was found, so timing does not reveal which usernames exist.
	hashToCheck := string(dummyHash)
	if lookupErr == nil {
		hashToCheck = u.Password
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(hashToCheck), []byte(body.Password))

	if lookupErr != nil || compareErr != nil {
		apiError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": u.AuthToken, "user_id": u.ID, "role": u.Role})
}

// bearerToken extracts the auth token from the Authorization header. Browsers
// cannot set headers on websocket upgrades, so a token query param is
// accepted as well.
func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer "), true
	}
	if t := c.Query("token"); t != "" {
		return t, true
	}
	return "", false
}

// authMiddleware validates the Bearer token and sets user_id and role on the context.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			apiError(c, http.StatusUnauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}

		var userID int
		var role string
		err := h.db.QueryRow(c, "SELECT id, role FROM users WHERE auth_token = $1", token).Scan(&userID, &role)
		if err != nil {
			apiError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

// requireRole rejects requests whose authenticated role is not role.
func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != role {
			apiError(c, http.StatusForbidden, "requires "+role+" role")
			c.Abort()
			return
		}
		c.Next()
	}
}

// patientScope resolves the :id route param to a patient id and sets
// patient_id. Doctors may address any patient; patients only themselves.
func (h *Handler) patientScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		patientID, err := strconv.Atoi(c.Param("id"))
		if err != nil || patientID <= 0 {
			apiError(c, http.StatusBadRequest, "invalid patient id")
			c.Abort()
			return
		}
		if c.GetString("role") != roleDoctor && c.GetInt("user_id") != patientID {
			apiError(c, http.StatusForbidden, "not allowed to access this patient")
			c.Abort()
			return
		}
		c.Set("patient_id", patientID)
		c.Next()
	}
}

// canAccessPatient reports whether the caller may read data owned by patientID.
func canAccessPatient(c *gin.Context, patientID int) bool {
	return c.GetString("role") == roleDoctor || c.GetInt("user_id") == patientID
}
