package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TicketIssuer 签发和校验实时通道的短期票据，subject 为用户的公开ID
type TicketIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTicketIssuer(secret string, ttl time.Duration) *TicketIssuer {
	return &TicketIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateTicket 生成票据
func (t *TicketIssuer) GenerateTicket(publicID string) (string, time.Time, error) {
	now := t.now()
	expire := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   publicID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expire),
		Audience:  jwt.ClaimStrings{"realtime"},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expire, nil
}

// ValidateTicket 校验票据，返回用户公开ID
func (t *TicketIssuer) ValidateTicket(ticket string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(ticket, claims, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("意外的签名方法: %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithAudience("realtime"),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("无效的票据")
	}
	if claims.Subject == "" {
		return "", errors.New("无效的用户ID")
	}
	return claims.Subject, nil
}
