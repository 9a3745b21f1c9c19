package transferhandler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ruteri/qkd-transfer-backend/api"
)

// Client talks to the transfer endpoints of a running server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client for the server at baseURL using http.DefaultClient.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: http.DefaultClient,
	}
}

// Download is a file returned by the server.
type Download struct {
	Filename    string
	ContentType string
	Digest      string
	Data        []byte
}

// Upload sends an encrypted file with the key and IV it was encrypted under.
func (c *Client) Upload(filename string, ciphertext []byte, keyHex, ivB64 string) (*api.UploadResponse, error) {
	body, contentType, err := multipartBody(filename, ciphertext, map[string]string{
		api.FormKeyHex:   keyHex,
		api.FormIVBase64: ivB64,
	})
	if err != nil {
		return nil, err
	}

	respBody, _, err := c.do(http.MethodPost, "/upload", contentType, body)
	if err != nil {
		return nil, err
	}

	var uploadResp api.UploadResponse
	if err := json.Unmarshal(respBody, &uploadResp); err != nil {
		return nil, fmt.Errorf("could not parse upload response: %w", err)
	}
	return &uploadResp, nil
}

// Transfer looks up a transfer's metadata.
func (c *Client) Transfer(id string) (*api.TransferResponse, error) {
	respBody, _, err := c.do(http.MethodGet, api.TransferPath(id), "", nil)
	if err != nil {
		return nil, err
	}

	var transferResp api.TransferResponse
	if err := json.Unmarshal(respBody, &transferResp); err != nil {
		return nil, fmt.Errorf("could not parse transfer response: %w", err)
	}
	return &transferResp, nil
}

// Ciphertext downloads the stored ciphertext.
func (c *Client) Ciphertext(id string) (*Download, error) {
	data, header, err := c.do(http.MethodGet, api.CiphertextPath(id), "", nil)
	if err != nil {
		return nil, err
	}
	return newDownload(data, header), nil
}

// Plaintext asks the server to decrypt a stored transfer.
func (c *Client) Plaintext(id string) (*Download, error) {
	data, header, err := c.do(http.MethodGet, api.PlaintextPath(id), "", nil)
	if err != nil {
		return nil, err
	}
	return newDownload(data, header), nil
}

// Decrypt asks the server to decrypt ciphertext without storing it.
// originalName may be empty.
func (c *Client) Decrypt(filename string, ciphertext []byte, keyHex, ivB64, originalName string) (*Download, error) {
	fields := map[string]string{
		api.FormKeyHex:   keyHex,
		api.FormIVBase64: ivB64,
	}
	if originalName != "" {
		fields[api.FormOriginalName] = originalName
	}

	body, contentType, err := multipartBody(filename, ciphertext, fields)
	if err != nil {
		return nil, err
	}

	data, header, err := c.do(http.MethodPost, "/decrypt", contentType, body)
	if err != nil {
		return nil, err
	}
	return newDownload(data, header), nil
}

func (c *Client) do(method, path, contentType string, body io.Reader) ([]byte, http.Header, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return nil, nil, fmt.Errorf("could not initialize request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("could not send request: %w", err)
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, api.DecodeError(resp.StatusCode, respBody)
	}
	return respBody, resp.Header, nil
}

func multipartBody(filename string, data []byte, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("could not write %s field: %w", name, err)
		}
	}

	part, err := mw.CreateFormFile(api.FormFile, filename)
	if err != nil {
		return nil, "", fmt.Errorf("could not create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("could not write file part: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("could not finalize multipart body: %w", err)
	}
	return body, mw.FormDataContentType(), nil
}

func newDownload(data []byte, header http.Header) *Download {
	d := &Download{
		ContentType: header.Get("Content-Type"),
		Digest:      header.Get(api.CiphertextDigestHeader),
		Data:        data,
	}
	if _, params, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil {
		d.Filename = params["filename"]
	}
	return d
}
