package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/emmett/aria/internal/speaker"
)

// RunEnrollment captures the configured number of speech samples from the
// microphone and commits a voice print for name. The live pipeline runs but
// sealed utterances are diverted to enrollment instead of transcription.
func (a *Assistant) RunEnrollment(ctx context.Context, name string) error {
	if a.enroller == nil {
		return fmt.Errorf("speaker recognition is disabled; cannot enroll")
	}
	if _, exists := a.registry.FindByName(name); exists {
		return fmt.Errorf("speaker %q is already enrolled", name)
	}

	n := a.enroller.SampleCount

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- a.orch.Run(ctx) }()

	a.statusOut.Info(fmt.Sprintf("Enrolling %q: speak %d phrases, pausing between them.", name, n))
	a.statusOut.Info("Each phrase should be at least a second or two of natural speech.")

	samples, err := a.orch.EnrollmentCapture(ctx, n)
	cancel()
	<-runErr
	if err != nil {
		return fmt.Errorf("enrollment capture: %w", err)
	}

	vp, err := a.enroller.Enroll(context.Background(), name, samples)
	if err != nil {
		switch {
		case errors.Is(err, speaker.ErrInconsistentSamples):
			a.statusOut.Error("Samples were too different from each other. Try again in a quieter environment.")
		case errors.Is(err, speaker.ErrDuplicateName):
			a.statusOut.Error("That name was enrolled while capturing. Pick another.")
		}
		return err
	}

	a.statusOut.Info(fmt.Sprintf("✓ Enrolled %q (id %d)", vp.Name, vp.ID))
	return nil
}
