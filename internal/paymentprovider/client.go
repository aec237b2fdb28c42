// Package paymentprovider реализует HTTP-клиент внешнего платёжного провайдера.
// Все вызовы ограничены таймаутом: истёкший запрос трактуется вызывающим
// кодом так же, как отклонённый платёж.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client инкапсулирует доступ к API платёжного провайдера.
type Client struct {
	shopID     string
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент платёжного провайдера.
func NewClient(shopID, secretKey, apiURL string, timeout time.Duration) *Client {
	return &Client{
		shopID:     shopID,
		secretKey:  secretKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.shopID + ":" + c.secretKey))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreatePaymentIntent создаёт платёжное намерение для подписки.
func (c *Client) CreatePaymentIntent(ctx context.Context, reqParams CreateIntentRequest) (*PaymentIntent, error) {
	const op = "paymentprovider.CreatePaymentIntent"
	req, err := c.newRequest(ctx, http.MethodPost, "/intents", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var intent PaymentIntent
	if err := c.do(req, &intent); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &intent, nil
}

// ProcessPayment запускает обработку платежа по идентификатору намерения.
func (c *Client) ProcessPayment(ctx context.Context, intentID string) (*ProcessResult, error) {
	const op = "paymentprovider.ProcessPayment"
	req, err := c.newRequest(ctx, http.MethodPost, "/intents/"+intentID+"/process", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result ProcessResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}
