package invoice

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/invoice-extractor/internal/document"
	"github.com/zombor/invoice-extractor/internal/fields"
	"github.com/zombor/invoice-extractor/internal/pipeline"
	"github.com/zombor/invoice-extractor/internal/scanning"
)

var _ = Describe("BoltDB", func() {
	var (
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	candidates := func(id string, at time.Time) *Extraction {
		rec := fields.NewInvoiceRecord()
		rec.InvoiceNumbers = []string{"INV-001"}
		rec.TotalAmounts = []float64{1250.5}
		rec.LineItems = []fields.LineItem{{Description: "Widget", Amount: 10}}
		return &Extraction{
			ID:        id,
			Filename:  id + "_invoice.pdf",
			Original:  "invoice.pdf",
			Extension: ".pdf",
			Method:    "local",
			Result:    pipeline.CandidatesResult(rec, document.ReadablePDF, "INV-001"),
			CreatedAt: at,
		}
	}

	Describe("SaveExtraction and GetExtraction", func() {
		It("should round-trip a local result", func() {
			at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
			Expect(db.SaveExtraction(candidates("a", at))).To(Succeed())

			got, err := db.GetExtraction("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Original).To(Equal("invoice.pdf"))
			Expect(got.CreatedAt.Equal(at)).To(BeTrue())
			Expect(got.Result.Kind).To(Equal(pipeline.KindCandidates))
			Expect(got.Result.Class).To(Equal(document.ReadablePDF))
			Expect(got.Result.Candidates.InvoiceNumbers).To(Equal([]string{"INV-001"}))
			Expect(got.Result.Candidates.TotalAmounts).To(Equal([]float64{1250.5}))
			Expect(got.Result.Candidates.LineItems).To(HaveLen(1))
		})

		It("should round-trip a remote guess", func() {
			e := &Extraction{
				ID:        "b",
				Method:    "remote",
				Result:    pipeline.SingleGuessResult(scanning.Guess{"vendor_name": "ACME", "total_amount": 99.5}),
				CreatedAt: time.Now().UTC(),
			}
			Expect(db.SaveExtraction(e)).To(Succeed())

			got, err := db.GetExtraction("b")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Result.Kind).To(Equal(pipeline.KindSingleGuess))
			Expect(got.Result.SingleGuess.VendorName()).To(Equal("ACME"))
			total, ok := got.Result.SingleGuess.TotalAmount()
			Expect(ok).To(BeTrue())
			Expect(total).To(Equal(99.5))
		})

		It("should overwrite an extraction with the same ID", func() {
			Expect(db.SaveExtraction(candidates("a", time.Now()))).To(Succeed())
			e := candidates("a", time.Now())
			e.Original = "renamed.pdf"
			Expect(db.SaveExtraction(e)).To(Succeed())

			got, err := db.GetExtraction("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Original).To(Equal("renamed.pdf"))
		})

		It("should return ErrNotFound for a missing ID", func() {
			_, err := db.GetExtraction("missing")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})
	})

	Describe("ListExtractions", func() {
		It("should return an empty slice when there are none", func() {
			list, err := db.ListExtractions()
			Expect(err).NotTo(HaveOccurred())
			Expect(list).NotTo(BeNil())
			Expect(list).To(BeEmpty())
		})

		It("should order extractions newest first", func() {
			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			Expect(db.SaveExtraction(candidates("old", base))).To(Succeed())
			Expect(db.SaveExtraction(candidates("new", base.Add(2*time.Hour)))).To(Succeed())
			Expect(db.SaveExtraction(candidates("mid", base.Add(time.Hour)))).To(Succeed())

			list, err := db.ListExtractions()
			Expect(err).NotTo(HaveOccurred())
			ids := make([]string, len(list))
			for i, e := range list {
				ids[i] = e.ID
			}
			Expect(ids).To(Equal([]string{"new", "mid", "old"}))
		})
	})

	Describe("DeleteExtraction", func() {
		It("should remove the extraction", func() {
			Expect(db.SaveExtraction(candidates("a", time.Now()))).To(Succeed())
			Expect(db.DeleteExtraction("a")).To(Succeed())

			_, err := db.GetExtraction("a")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})

		It("should return ErrNotFound for a missing ID", func() {
			Expect(errors.Is(db.DeleteExtraction("missing"), ErrNotFound)).To(BeTrue())
		})
	})

	Describe("persistence", func() {
		It("should keep data across reopen", func() {
			Expect(db.SaveExtraction(candidates("a", time.Now()))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())

			got, err := db.GetExtraction("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal("a"))
		})
	})
})
