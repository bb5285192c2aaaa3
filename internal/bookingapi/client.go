// internal/bookingapi/client.go
package bookingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Client fala com a API de reservas (courts, bookings, videos).
type Client struct {
	BaseURL  string
	APIToken string // Authorization: Bearer ...

	// HTTP para chamadas de metadados (timeout curto); Upload para o binário.
	HTTP   *http.Client
	Upload *http.Client
}

// StatusError guarda o status e o corpo de uma resposta não-2xx.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Op, e.Status, e.Body)
}

func New(baseURL, apiToken string, metadataTimeout, uploadTimeout time.Duration) *Client {
	if metadataTimeout <= 0 {
		metadataTimeout = 10 * time.Second
	}
	if uploadTimeout <= 0 {
		uploadTimeout = 120 * time.Second
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIToken: apiToken,
		HTTP:     &http.Client{Timeout: metadataTimeout},
		Upload:   &http.Client{Timeout: uploadTimeout},
	}
}

// NewFromEnv lê:
//
//	BOOKING_API_URL              (ex: https://api.quadras.local/v1)
//	BOOKING_API_TOKEN            (opcional)
//	BOOKING_API_TIMEOUT_SECONDS  (default 10)
//	UPLOAD_TIMEOUT_SECONDS       (default 120)
func NewFromEnv() (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("BOOKING_API_URL"))
	if baseURL == "" {
		return nil, fmt.Errorf("BOOKING_API_URL não definido")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("BOOKING_API_URL inválido (%q): %w", baseURL, err)
	}
	return New(baseURL,
		os.Getenv("BOOKING_API_TOKEN"),
		envSeconds("BOOKING_API_TIMEOUT_SECONDS", 10*time.Second),
		envSeconds("UPLOAD_TIMEOUT_SECONDS", 120*time.Second),
	), nil
}

// FindCourt procura a quadra pelo nome. GET /courts?name=...
func (c *Client) FindCourt(ctx context.Context, name string) (string, bool, error) {
	urlReq := c.BaseURL + "/courts?name=" + url.QueryEscape(name)
	body, err := c.do(ctx, c.HTTP, http.MethodGet, urlReq, nil, "", "FindCourt")
	if err != nil {
		return "", false, err
	}

	var envelope struct {
		Success *bool             `json:"success"`
		Data    []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", false, fmt.Errorf("erro ao parsear JSON FindCourt: %w (body=%s)", err, string(body))
	}
	if envelope.Success != nil && !*envelope.Success {
		return "", false, fmt.Errorf("FindCourt: success=false (body=%s)", string(body))
	}
	for _, raw := range envelope.Data {
		var court struct {
			Name string `json:"name"`
		}
		_ = json.Unmarshal(raw, &court)
		if court.Name != "" && !strings.EqualFold(court.Name, name) {
			continue
		}
		if id := extractID(raw); id != "" {
			return id, true, nil
		}
	}
	return "", false, nil
}

// CreateCourt cria a quadra. POST /courts
func (c *Client) CreateCourt(ctx context.Context, name string, externalID int) (string, error) {
	payload := map[string]interface{}{
		"name":        name,
		"external_id": externalID,
	}
	return c.create(ctx, "/courts", payload, "CreateCourt")
}

// ResolveCourt devolve o id da quadra, criando se não existir.
func (c *Client) ResolveCourt(ctx context.Context, name string, externalID int) (string, error) {
	id, found, err := c.FindCourt(ctx, name)
	if err != nil {
		return "", err
	}
	if found {
		return id, nil
	}
	return c.CreateCourt(ctx, name, externalID)
}

// CreateBooking registra a reserva [start, end). POST /bookings
func (c *Client) CreateBooking(ctx context.Context, courtID string, start, end time.Time) (string, error) {
	payload := map[string]interface{}{
		"court_id":   courtID,
		"start_time": start.UTC().Format(time.RFC3339),
		"end_time":   end.UTC().Format(time.RFC3339),
	}
	return c.create(ctx, "/bookings", payload, "CreateBooking")
}

// UploadVideo envia o clip como multipart. POST /videos
//
// - Form-data:
//
//	file        = arquivo de vídeo
//	booking_id  = id da reserva
//	source_name = nome da câmera
func (c *Client) UploadVideo(ctx context.Context, bookingID, path, sourceName string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("erro ao abrir arquivo %s: %w", path, err)
	}
	defer file.Close()

	// multipart em streaming: o arquivo não é carregado inteiro em memória
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeVideoForm(writer, file, filepath.Base(path), bookingID, sourceName))
	}()

	body, err := c.do(ctx, c.Upload, http.MethodPost, c.BaseURL+"/videos", pr, writer.FormDataContentType(), "UploadVideo")
	// garante que a goroutine do pipe termine se o request falhou no meio
	pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return "", err
	}
	return extractID(body), nil
}

func writeVideoForm(writer *multipart.Writer, file io.Reader, filename, bookingID, sourceName string) error {
	if err := writer.WriteField("booking_id", bookingID); err != nil {
		return fmt.Errorf("erro ao escrever campo booking_id: %w", err)
	}
	if sourceName != "" {
		if err := writer.WriteField("source_name", sourceName); err != nil {
			return fmt.Errorf("erro ao escrever campo source_name: %w", err)
		}
	}
	fw, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("erro ao criar part file: %w", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return fmt.Errorf("erro ao copiar arquivo para multipart: %w", err)
	}
	return writer.Close()
}

func (c *Client) create(ctx context.Context, path string, payload interface{}, op string) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", op, err)
	}
	body, err := c.do(ctx, c.HTTP, http.MethodPost, c.BaseURL+path, bytes.NewReader(b), "application/json", op)
	if err != nil {
		return "", err
	}

	var envelope struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("erro ao parsear JSON %s: %w (body=%s)", op, err, string(body))
	}
	if envelope.Success != nil && !*envelope.Success {
		return "", fmt.Errorf("%s: success=false (body=%s)", op, string(body))
	}
	id := extractID(body)
	if id == "" {
		return "", fmt.Errorf("%s: resposta sem id (body=%s)", op, string(body))
	}
	return id, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, urlReq string, body io.Reader, contentType, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlReq, body)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar request %s: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro ao chamar %s: %w", op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler resposta %s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}
	return bodyBytes, nil
}

// extractID procura "id" em data.id ou na raiz; aceita número ou string.
func extractID(raw []byte) string {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	if data, ok := m["data"].(map[string]interface{}); ok {
		if id := idString(data["id"]); id != "" {
			return id
		}
	}
	return idString(m["id"])
}

func idString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

func envSeconds(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		return def
	}
	return time.Duration(sec) * time.Second
}
