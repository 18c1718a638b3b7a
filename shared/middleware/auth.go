package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/pavitra93/go-property-management/shared/utils"
)

const userContextKey = "current_user"

// ErrUnknownUser is returned when neither the user directory, the token nor
// the identity provider can name a role for the caller.
var ErrUnknownUser = errors.New("user not provisioned")

// UserDirectory looks up staff records by identity-provider subject
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// AttributeSource returns identity-provider attributes for a subject
type AttributeSource interface {
	UserAttributes(ctx context.Context, sub string) (map[string]string, error)
}

// TokenValidator verifies a token's signature
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwt.Token, error)
}

// AuthOptions configures NewAuthMiddleware
type AuthOptions struct {
	Region           string
	UserPoolID       string
	VerifySignatures bool
	Users            UserDirectory
	Attributes       AttributeSource
	Validator        TokenValidator
	ClaimsTTL        time.Duration
}

// AuthMiddleware resolves the bearer token to the acting staff user
type AuthMiddleware struct {
	users      UserDirectory
	attributes AttributeSource
	validator  TokenValidator
	verify     bool
	claimsTTL  time.Duration
}

// CognitoClaims represents the Cognito JWT claims used here
type CognitoClaims struct {
	Sub         string `json:"sub"`
	Email       string `json:"email"`
	Username    string `json:"cognito:username"`
	TokenUse    string `json:"token_use"`
	Role        string `json:"custom:role"`
	PropertyIDs string `json:"custom:property_ids"`
}

// NewAuthMiddleware creates the middleware. With signature verification on,
// a user pool or an explicit validator is required.
func NewAuthMiddleware(opts AuthOptions) (*AuthMiddleware, error) {
	if opts.Users == nil {
		return nil, errors.New("auth middleware needs a user directory")
	}
	am := &AuthMiddleware{
		users:      opts.Users,
		attributes: opts.Attributes,
		validator:  opts.Validator,
		verify:     opts.VerifySignatures,
		claimsTTL:  opts.ClaimsTTL,
	}
	if am.claimsTTL <= 0 {
		am.claimsTTL = time.Hour
	}

	if opts.UserPoolID != "" {
		if am.attributes == nil {
			sess, err := session.NewSession(&aws.Config{Region: aws.String(opts.Region)})
			if err != nil {
				return nil, err
			}
			am.attributes = &CognitoAttributes{
				client:     cognitoidentityprovider.New(sess),
				userPoolID: opts.UserPoolID,
			}
		}
		if am.verify && am.validator == nil {
			am.validator = utils.NewJWKSValidator(opts.Region, opts.UserPoolID)
		}
	}
	if am.verify && am.validator == nil {
		return nil, errors.New("signature verification needs COGNITO_USER_POOL_ID")
	}
	return am, nil
}

// RequireAuth resolves the caller and stores the user on the context.
// The request context carries the user id as the event actor.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			utils.UnauthorizedResponse(c, "Authorization token required")
			c.Abort()
			return
		}

		claims, err := am.parseClaims(tokenString)
		if err != nil {
			utils.Logger.WithError(err).Debug("token rejected")
			utils.UnauthorizedResponse(c, "Invalid token")
			c.Abort()
			return
		}

		user, err := am.resolveUser(c.Request.Context(), claims)
		switch {
		case err == nil:
		case store.IsTransient(err):
			utils.Logger.WithError(err).WithField("sub", claims.Sub).Warn("user directory unavailable")
			utils.ServiceUnavailableResponse(c, "User directory unavailable")
			c.Abort()
			return
		default:
			utils.Logger.WithError(err).WithField("sub", claims.Sub).Info("unknown user")
			utils.UnauthorizedResponse(c, "User not provisioned")
			c.Abort()
			return
		}

		c.Set(userContextKey, user)
		c.Request = c.Request.WithContext(events.WithActor(c.Request.Context(), user.ID))
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed
func (am *AuthMiddleware) RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			utils.UnauthorizedResponse(c, "User not found in context")
			c.Abort()
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		utils.ForbiddenResponse(c, fmt.Sprintf("Insufficient permissions: role %s", user.Role))
		c.Abort()
	}
}

// CurrentUser returns the user set by RequireAuth, or nil
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// SetCurrentUser stores user on the context the way RequireAuth does
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(userContextKey, user)
	if c.Request != nil && user != nil {
		c.Request = c.Request.WithContext(events.WithActor(c.Request.Context(), user.ID))
	}
}

// resolveUser prefers the directory record. A subject missing from the
// directory falls back to token claims, then to identity-provider attributes.
func (am *AuthMiddleware) resolveUser(ctx context.Context, claims *CognitoClaims) (*models.User, error) {
	user, err := am.users.GetByID(ctx, claims.Sub)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if claims.Role == "" && am.attributes != nil {
		attrs, err := am.attributes.UserAttributes(ctx, claims.Sub)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknownUser, err)
		}
		claims.Role = attrs["custom:role"]
		if claims.PropertyIDs == "" {
			claims.PropertyIDs = attrs["custom:property_ids"]
		}
		if claims.Email == "" {
			claims.Email = attrs["email"]
		}
	}

	role := models.UserRole(claims.Role)
	if role != models.RoleSuperAdmin && role != models.RoleAdmin {
		return nil, ErrUnknownUser
	}
	user = &models.User{Email: claims.Email, Name: claims.Username, Role: role, PropertyIDs: splitClaim(claims.PropertyIDs)}
	user.ID = claims.Sub
	return user, nil
}

// getCacheKey generates a cache key for the token
func getCacheKey(tokenString string) string {
	hash := sha256.Sum256([]byte(tokenString))
	return "token:" + hex.EncodeToString(hash[:])
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return authHeader
}

// parseClaims verifies the token when configured to, and caches the
// parsed claims in Redis keyed by the token hash.
func (am *AuthMiddleware) parseClaims(tokenString string) (*CognitoClaims, error) {
	cacheKey := getCacheKey(tokenString)
	if cachedData, err := utils.CacheGet(cacheKey); err == nil {
		var claims CognitoClaims
		if err := json.Unmarshal([]byte(cachedData), &claims); err == nil {
			return &claims, nil
		}
	}

	var token *jwt.Token
	var err error
	if am.verify {
		token, err = am.validator.ValidateToken(tokenString)
	} else {
		token, _, err = jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims format")
	}
	claims := &CognitoClaims{
		Sub:         getClaimString(mapClaims, "sub"),
		Email:       getClaimString(mapClaims, "email"),
		Username:    getClaimString(mapClaims, "cognito:username"),
		TokenUse:    getClaimString(mapClaims, "token_use"),
		Role:        getClaimString(mapClaims, "custom:role"),
		PropertyIDs: getClaimString(mapClaims, "custom:property_ids"),
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	// Cognito issues access tokens without custom attributes and id tokens with them
	if claims.TokenUse != "" && claims.TokenUse != "access" && claims.TokenUse != "id" {
		return nil, fmt.Errorf("invalid token use: expected 'access' or 'id', got '%s'", claims.TokenUse)
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
		return nil, fmt.Errorf("token expired")
	}

	ttl := am.claimsTTL
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		if left := time.Until(exp.Time); left < ttl {
			ttl = left
		}
	}
	if cacheData, err := json.Marshal(claims); err == nil && ttl > 0 {
		_ = utils.CacheSet(cacheKey, string(cacheData), ttl)
	}
	return claims, nil
}

// getClaimString safely extracts a string claim from JWT claims
func getClaimString(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func splitClaim(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CognitoAttributes reads user attributes with AdminGetUser
type CognitoAttributes struct {
	client     *cognitoidentityprovider.CognitoIdentityProvider
	userPoolID string
}

// UserAttributes returns the subject's attributes by name
func (ca *CognitoAttributes) UserAttributes(ctx context.Context, sub string) (map[string]string, error) {
	out, err := ca.client.AdminGetUserWithContext(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: aws.String(ca.userPoolID),
		Username:   aws.String(sub),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Cognito: %w", err)
	}
	attrs := make(map[string]string, len(out.UserAttributes))
	for _, attr := range out.UserAttributes {
		attrs[aws.StringValue(attr.Name)] = aws.StringValue(attr.Value)
	}
	return attrs, nil
}
