package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"backend/internal/models"
)

// Config carries everything the adapter needs; nothing is read from ambient
// globals inside the adapter.
type Config struct {
	BaseURL    string
	MerchantID string
	Secret     string
	NotifyURL  string
	ReturnURL  string
	Timeout    time.Duration
}

// Gateway builds signed payment-creation requests and verifies inbound
// callback signatures for the wallet provider.
type Gateway struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

var (
	ErrWrongStatus  = errors.New("preorder status does not permit this payment kind")
	ErrNothingDue   = errors.New("nothing due for this payment kind")
	ErrGateway      = errors.New("payment gateway error")
	ErrBadReference = errors.New("malformed payment reference")
)

// Intent is a created payment session.
type Intent struct {
	PayURL    string `json:"payUrl"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

type createRequest struct {
	MerchantID string `json:"merchantId"`
	RequestID  string `json:"requestId"`
	Reference  string `json:"reference"`
	Amount     int64  `json:"amount"`
	OrderInfo  string `json:"orderInfo"`
	ReturnURL  string `json:"returnUrl"`
	NotifyURL  string `json:"notifyUrl"`
	Signature  string `json:"signature"`
}

type createResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	PayURL  string `json:"payUrl"`
}

// AmountDue returns what a payment of the given kind should collect right
// now, validating that the preorder's status permits that kind.
func AmountDue(p *models.Preorder, kind models.PaymentKind) (int64, error) {
	switch kind {
	case models.PaymentKindDeposit:
		if p.Status != models.PreorderPendingPayment {
			return 0, ErrWrongStatus
		}
		return p.DepositDue - p.DepositPaid, nil
	case models.PaymentKindRemaining:
		if p.Status != models.PreorderConfirmed && p.Status != models.PreorderShipping {
			return 0, ErrWrongStatus
		}
		return p.RemainingDue, nil
	default:
		return 0, ErrWrongStatus
	}
}

// CreateIntent requests a payment session from the provider for the deposit
// or remaining obligation of p. No preorder mutation happens here; any
// provider-side failure surfaces as an error.
func (g *Gateway) CreateIntent(ctx context.Context, p *models.Preorder, kind models.PaymentKind) (*Intent, error) {
	amount, err := AmountDue(p, kind)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrNothingDue
	}

	ref := EncodeReference(p.ID.Hex(), kind)
	orderInfo := fmt.Sprintf("FreshFruit preorder %s (%s)", p.Code, kind)
	req := createRequest{
		MerchantID: g.cfg.MerchantID,
		RequestID:  uuid.NewString(),
		Reference:  ref,
		Amount:     amount,
		OrderInfo:  orderInfo,
		ReturnURL:  g.cfg.ReturnURL,
		NotifyURL:  g.cfg.NotifyURL,
	}
	req.Signature = sign(g.cfg.Secret,
		req.MerchantID,
		req.Reference,
		strconv.FormatInt(req.Amount, 10),
		req.OrderInfo,
		req.ReturnURL,
		req.NotifyURL,
	)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v2/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)
	}

	var out createResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed response", ErrGateway)
	}
	if out.Code != 0 || out.PayURL == "" {
		return nil, fmt.Errorf("%w: provider code %d (%s)", ErrGateway, out.Code, out.Message)
	}

	return &Intent{PayURL: out.PayURL, Amount: amount, Reference: ref}, nil
}

// Callback is the provider's IPN payload. Code 0 means the transaction
// succeeded; any other code is a failure.
type Callback struct {
	MerchantID    string `json:"merchantId"`
	Reference     string `json:"reference" binding:"required"`
	TransactionID string `json:"transactionId" binding:"required"`
	Amount        int64  `json:"amount"`
	Code          int    `json:"code"`
	OrderInfo     string `json:"orderInfo"`
	Signature     string `json:"signature" binding:"required"`
}

// VerifySignature recomputes the provider HMAC over the declared field order
// and over the legacy order still emitted by older provider versions.
// Comparison is constant-time.
func (g *Gateway) VerifySignature(cb Callback) bool {
	current := sign(g.cfg.Secret,
		cb.MerchantID,
		cb.Reference,
		cb.TransactionID,
		strconv.FormatInt(cb.Amount, 10),
		strconv.Itoa(cb.Code),
		cb.OrderInfo,
	)
	legacy := sign(g.cfg.Secret,
		cb.Reference,
		strconv.FormatInt(cb.Amount, 10),
		strconv.Itoa(cb.Code),
		cb.TransactionID,
	)
	got := []byte(cb.Signature)
	return hmac.Equal(got, []byte(current)) || hmac.Equal(got, []byte(legacy))
}

// EncodeReference builds the opaque reference that round-trips the preorder
// id and payment kind through the provider callback.
func EncodeReference(preorderID string, kind models.PaymentKind) string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s|%s|%s", preorderID, kind, nonce)
}

// ParseReference recovers the preorder id and kind from a callback reference.
func ParseReference(ref string) (string, models.PaymentKind, error) {
	parts := strings.Split(ref, "|")
	if len(parts) != 3 || parts[0] == "" {
		return "", "", ErrBadReference
	}
	kind := models.PaymentKind(parts[1])
	if kind != models.PaymentKindDeposit && kind != models.PaymentKindRemaining {
		return "", "", ErrBadReference
	}
	return parts[0], kind, nil
}

// sign joins the fields with pipes and returns the hex HMAC-SHA256.
func sign(secret string, fields ...string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
