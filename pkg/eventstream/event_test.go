package eventstream_test

import (
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lumihq/recall/pkg/eventstream"
)

func TestEventstream(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Eventstream Suite")
}

var _ = Describe("Event", func() {
	It("marshals MemoryIngestedEvent with expected top-level keys", func() {
		event := eventstream.NewMemoryIngestedEvent("u1", "s1", []string{"r1", "r2"})

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("user_id"))
		Expect(got).To(HaveKey("session_id"))
		Expect(got).To(HaveKey("record_ids"))
	})

	It("marshals SessionForgottenEvent with expected top-level keys", func() {
		event := eventstream.NewSessionForgottenEvent("s1", 3)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("session_id"))
		Expect(got).To(HaveKey("deleted"))
	})

	It("populates constructor fields", func() {
		event := eventstream.NewMemoryIngestedEvent("u1", "s1", []string{"r1"})
		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeMemoryIngested))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.EmittedAt).NotTo(BeZero())
		Expect(event.UserID).To(Equal("u1"))
		Expect(event.SessionID).To(Equal("s1"))
		Expect(event.RecordIDs).To(Equal([]string{"r1"}))
	})

	It("assigns a fresh event ID per event", func() {
		a := eventstream.NewSessionForgottenEvent("s1", 1)
		b := eventstream.NewSessionForgottenEvent("s1", 1)
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeMemoryIngested).To(Equal("recall.memory.ingested"))
		Expect(eventstream.EventTypeSessionForgotten).To(Equal("recall.session.forgotten"))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).NotTo(BeNil())
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})
