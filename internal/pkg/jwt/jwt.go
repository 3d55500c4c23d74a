package jwt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type Role string

const (
	RoleEmployee   Role = "employee"
	RoleKiosk      Role = "kiosk"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

type Permission string

const (
	PermissionPunch    Permission = "timecard.punch"
	PermissionReview   Permission = "timecard.review"
	PermissionSchedule Permission = "schedule.manage"
)

var rolePermissions = map[Role][]Permission{
	RoleEmployee:   {PermissionPunch},
	RoleKiosk:      {PermissionPunch},
	RoleSupervisor: {PermissionPunch, PermissionReview},
	RoleAdmin:      {PermissionPunch, PermissionReview, PermissionSchedule},
}

// HasPermission reports whether role grants permission.
func HasPermission(role Role, permission Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

var ErrInvalidClaims = errors.New("token claims are invalid")

// Claims is what handlers read from an access token.
type Claims struct {
	Subject    string
	EmployeeID string // empty for kiosk tokens
	SiteID     string // kiosk tokens are bound to one site
	Role       Role
}

type Service interface {
	GenerateAccessToken(claims Claims) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
	RevokeToken(token string)
	IsTokenRevoked(token string) bool
}

type JWTService struct {
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
	revokedTokens             map[string]int64
	mu                        sync.RWMutex
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		revokedTokens:             make(map[string]int64),
	}
}

func (j *JWTService) GenerateAccessToken(c Claims) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	claims := map[string]interface{}{
		"sub":         c.Subject,
		"employee_id": returnValueOrNil(c.EmployeeID),
		"site_id":     returnValueOrNil(c.SiteID),
		"role":        string(c.Role),
		"type":        "access",
		"exp":         expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

func (j *JWTService) RevokeToken(token string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.revokedTokens[token] = time.Now().Unix()
}

func (j *JWTService) IsTokenRevoked(token string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	_, revoked := j.revokedTokens[token]
	return revoked
}

// ClaimsFromContext reads the verified token placed on ctx by jwtauth.Verifier.
func ClaimsFromContext(ctx context.Context) (Claims, error) {
	_, raw, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Claims{}, err
	}
	return ParseClaims(raw)
}

// ParseClaims converts the decoded claim map.
func ParseClaims(raw map[string]interface{}) (Claims, error) {
	if t, _ := raw["type"].(string); t != "access" {
		return Claims{}, ErrInvalidClaims
	}
	sub, _ := raw["sub"].(string)
	role, _ := raw["role"].(string)
	if sub == "" || role == "" {
		return Claims{}, ErrInvalidClaims
	}
	employeeID, _ := raw["employee_id"].(string)
	siteID, _ := raw["site_id"].(string)
	return Claims{
		Subject:    sub,
		EmployeeID: employeeID,
		SiteID:     siteID,
		Role:       Role(role),
	}, nil
}

func returnValueOrNil(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
