package modules

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goravsingal/hubble/pkg/fdg"
)

const defaultCurlTimeout = 30 * time.Second

// Curl implements curl.request: a GET or POST against a URL, returning
// {"status": code, "response": body}. The status of the result is tied
// to the HTTP status (non-4xx/5xx is positive), so routines can branch
// on reachability with the *_on_false keywords.
type Curl struct {
	// Client overrides the default HTTP client, for tests.
	Client *http.Client
}

type curlParams struct {
	URL        string            `mapstructure:"url"`
	Function   string            `mapstructure:"function"`
	Params     map[string]string `mapstructure:"params"`
	Data       any               `mapstructure:"data"`
	Headers    map[string]string `mapstructure:"headers"`
	Username   string            `mapstructure:"username"`
	Password   string            `mapstructure:"password"`
	Timeout    int               `mapstructure:"timeout"`
	DecodeJSON *bool             `mapstructure:"decode_json"`
}

var curlParamNames = []string{"url", "function"}

func (m *Curl) ValidateParams(call fdg.Call) error {
	var p curlParams
	if err := decodeParams(call, curlParamNames, &p); err != nil {
		return err
	}
	if p.URL == "" {
		if _, ok := chainedString(call); !ok {
			return missingParam("url")
		}
	}
	switch strings.ToUpper(p.Function) {
	case "", "GET", "POST":
	default:
		return fmt.Errorf("unsupported function %q: only GET and POST are allowed", p.Function)
	}
	return nil
}

func (m *Curl) Invoke(ctx context.Context, call fdg.Call) (fdg.Result, error) {
	var p curlParams
	if err := decodeParams(call, curlParamNames, &p); err != nil {
		return fdg.Result{}, err
	}
	if p.URL == "" {
		p.URL, _ = chainedString(call)
	}

	method := strings.ToUpper(p.Function)
	if method == "" {
		method = "GET"
	}

	var body io.Reader
	if method == "POST" && p.Data != nil {
		encoded, err := json.Marshal(p.Data)
		if err != nil {
			return fdg.Result{}, fmt.Errorf("encode request data: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	timeout := defaultCurlTimeout
	if p.Timeout > 0 {
		timeout = time.Duration(p.Timeout) * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, p.URL, body)
	if err != nil {
		return fdg.Result{}, fmt.Errorf("build request: %w", err)
	}
	if len(p.Params) > 0 {
		query := url.Values{}
		for k, v := range p.Params {
			query.Set(k, v)
		}
		req.URL.RawQuery = query.Encode()
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.Username != "" {
		req.SetBasicAuth(p.Username, p.Password)
	}

	client := m.Client
	if client == nil {
		client = &http.Client{}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fdg.Negative(fmt.Sprintf("request failed: %v", err)), nil
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fdg.Negative(fmt.Sprintf("read response: %v", err)), nil
	}

	var response any = string(raw)
	if p.DecodeJSON == nil || *p.DecodeJSON {
		var decoded any
		if jsonErr := json.Unmarshal(raw, &decoded); jsonErr == nil {
			response = decoded
		}
	}

	value := map[string]any{"status": resp.StatusCode, "response": response}
	return fdg.Result{Status: resp.StatusCode < 400, Value: value}, nil
}
