package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/invoice-extractor/internal/ocr"
)

type fakeRasterizer struct {
	pages    []image.Image
	err      error
	maxPages int
	calls    int
}

func (f *fakeRasterizer) Rasterize(ctx context.Context, data []byte, dpi, maxPages int) ([]image.Image, error) {
	f.calls++
	f.maxPages = maxPages
	return f.pages, f.err
}

func pngBytes(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{B: 255, A: 255})
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Payload", func() {
	var (
		rasterizer *fakeRasterizer
		payload    *Payload
	)

	BeforeEach(func() {
		rasterizer = &fakeRasterizer{}
		payload = NewPayload(rasterizer, 0)
	})

	It("keeps the pixel dimensions of an image through the round trip", func() {
		b64, err := payload.EncodeBase64(context.Background(), pngBytes(37, 23), ".png")
		Expect(err).NotTo(HaveOccurred())

		raw, err := base64.StdEncoding.DecodeString(b64)
		Expect(err).NotTo(HaveOccurred())
		img, err := jpeg.Decode(bytes.NewReader(raw))
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Size()).To(Equal(image.Pt(37, 23)))
		Expect(rasterizer.calls).To(BeZero())
	})

	It("renders only the first page of a PDF", func() {
		rasterizer.pages = []image.Image{image.NewRGBA(image.Rect(0, 0, 10, 20))}

		raw, err := payload.Encode(context.Background(), []byte("%PDF"), ".PDF")
		Expect(err).NotTo(HaveOccurred())
		Expect(rasterizer.maxPages).To(Equal(1))

		img, err := jpeg.Decode(bytes.NewReader(raw))
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Size()).To(Equal(image.Pt(10, 20)))
	})

	It("reports a PDF without pages", func() {
		_, err := payload.Encode(context.Background(), []byte("%PDF"), ".pdf")
		Expect(err).To(MatchError(ocr.ErrNoPages))
	})

	It("reports a PDF that cannot be rendered", func() {
		rasterizer.err = errors.New("broken xref")
		_, err := payload.Encode(context.Background(), []byte("%PDF"), ".pdf")
		Expect(err).To(MatchError(ContainSubstring("broken xref")))
	})

	It("rejects undecodable images", func() {
		_, err := payload.Encode(context.Background(), []byte("garbage"), ".jpg")
		Expect(err).To(MatchError(ocr.ErrInvalidImage))
	})
})

var _ = Describe("Groq", func() {
	var (
		server  *ghttp.Server
		scanner *Groq
		timeout time.Duration
		guess   Guess
		err     error
	)

	chatResponse := func(content string) string {
		body, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   DefaultGroqModel,
			"choices": []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
		return string(body)
	}

	BeforeEach(func() {
		server = ghttp.NewServer()
		timeout = 5 * time.Second
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		scanner, err = NewGroq(ProviderConfig{
			APIKey:      "gsk_test",
			BaseURL:     server.URL() + "/openai/v1/",
			Temperature: 0.3,
			Timeout:     timeout,
		}, nil, nil)
		Expect(err).NotTo(HaveOccurred())

		guess, err = scanner.ScanInvoice(context.Background(), pngBytes(8, 8), ".png")
	})

	When("the model answers with fenced JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/openai/v1/chat/completions"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer gsk_test"),
				func(w http.ResponseWriter, r *http.Request) {
					defer GinkgoRecover()
					var req struct {
						Model       string  `json:"model"`
						Temperature float64 `json:"temperature"`
						Messages    []struct {
							Role    string          `json:"role"`
							Content json.RawMessage `json:"content"`
						} `json:"messages"`
					}
					body, _ := io.ReadAll(r.Body)
					Expect(json.Unmarshal(body, &req)).To(Succeed())
					Expect(req.Model).To(Equal(DefaultGroqModel))
					Expect(req.Temperature).To(Equal(0.3))
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[0].Role).To(Equal("system"))
					Expect(req.Messages[1].Role).To(Equal("user"))
					Expect(string(req.Messages[1].Content)).To(ContainSubstring("data:image/jpeg;base64,"))
				},
				ghttp.RespondWith(http.StatusOK, chatResponse("```json\n{\"invoice_number\": \"X\", \"total_amount\": 250.0}\n```")),
			))
		})

		It("returns the recovered object", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(guess.InvoiceNumber()).To(Equal("X"))
		})
	})

	When("the model refuses", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, chatResponse("Sorry, I cannot help.")))
		})

		It("returns an empty guess without an error", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(guess.IsEmpty()).To(BeTrue())
		})
	})

	When("the key is rejected", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusUnauthorized,
				`{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`))
		})

		It("returns a remote error with the status", func() {
			var remote *RemoteError
			Expect(errors.As(err, &remote)).To(BeTrue())
			Expect(remote.Provider).To(Equal("groq"))
			Expect(remote.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(server.ReceivedRequests()).To(HaveLen(1))
		})
	})

	When("the call exceeds the timeout", func() {
		BeforeEach(func() {
			timeout = 50 * time.Millisecond
			server.AppendHandlers(ghttp.CombineHandlers(
				func(w http.ResponseWriter, r *http.Request) {
					time.Sleep(300 * time.Millisecond)
				},
				ghttp.RespondWith(http.StatusOK, chatResponse("{}")),
			))
		})

		It("returns a remote error", func() {
			var remote *RemoteError
			Expect(errors.As(err, &remote)).To(BeTrue())
			Expect(remote.StatusCode).To(BeZero())
		})
	})
})

var _ = Describe("provider constructors", func() {
	It("require a Groq key", func() {
		_, err := NewGroq(ProviderConfig{}, nil, nil)
		Expect(err).To(MatchError(ErrMissingCredentials))
	})

	It("require a Gemini key", func() {
		_, err := NewGemini(ProviderConfig{}, nil, nil)
		Expect(err).To(MatchError(ErrMissingCredentials))
	})

	It("do not require an Ollama key", func() {
		_, err := NewOllama(ProviderConfig{}, nil, nil)
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("Ollama", func() {
	var (
		server  *ghttp.Server
		scanner *Ollama
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		scanner, err = NewOllama(ProviderConfig{BaseURL: server.URL() + "/", Model: "llava:1.6", Temperature: 0.3}, nil, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("attaches the image to the user message", func() {
		server.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
			func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				var req ollamaChatRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.Model).To(Equal("llava:1.6"))
				Expect(req.Stream).To(BeFalse())
				Expect(req.Messages).To(HaveLen(2))
				Expect(req.Messages[0].Images).To(BeEmpty())
				Expect(req.Messages[1].Images).To(HaveLen(1))
				Expect(strings.HasPrefix(req.Messages[1].Images[0], "data:")).To(BeFalse())
			},
			ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: `{"vendor_name": "ACME Corp"}`},
				Done:    true,
			}),
		))

		guess, err := scanner.ScanInvoice(context.Background(), pngBytes(4, 4), "png")
		Expect(err).NotTo(HaveOccurred())
		Expect(guess.VendorName()).To(Equal("ACME Corp"))
	})

	It("wraps error statuses", func() {
		server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, `{"error":"model 'llava:1.6' not found"}`))

		_, err := scanner.ScanInvoice(context.Background(), pngBytes(4, 4), ".png")
		var remote *RemoteError
		Expect(errors.As(err, &remote)).To(BeTrue())
		Expect(remote.StatusCode).To(Equal(http.StatusNotFound))
		Expect(err).To(MatchError(ContainSubstring("not found")))
	})

	It("does not call the server for an invalid image", func() {
		_, err := scanner.ScanInvoice(context.Background(), []byte("garbage"), ".png")
		Expect(err).To(MatchError(ocr.ErrInvalidImage))
		Expect(server.ReceivedRequests()).To(BeEmpty())
	})
})
