package app

import (
	"fmt"
	"strconv"
)

// ListSpeakers prints the enrolled voice prints.
func (a *Assistant) ListSpeakers() error {
	if a.registry == nil {
		return fmt.Errorf("speaker recognition is disabled")
	}

	prints := a.registry.List()
	if len(prints) == 0 {
		fmt.Println("No speakers enrolled yet.")
		fmt.Println()
		fmt.Println("Use 'aria -enroll <name>' to enroll a speaker")
		return nil
	}

	fmt.Printf("Enrolled speakers (%d):\n\n", len(prints))
	for _, vp := range prints {
		status := "active"
		if !vp.Active {
			status = "inactive"
		}
		fmt.Printf("%d. %s (%s)\n", vp.ID, vp.Name, status)
		fmt.Printf("   Enrolled:     %s\n", vp.EnrolledAt.Format("2006-01-02 15:04"))
		fmt.Printf("   Recognitions: %d\n", vp.RecognitionCount)
		if vp.LastRecognized != nil {
			fmt.Printf("   Last seen:    %s\n", vp.LastRecognized.Format("2006-01-02 15:04"))
		}
		fmt.Println()
	}
	return nil
}

// DeleteSpeaker removes a voice print by numeric ID or name.
func (a *Assistant) DeleteSpeaker(idOrName string) error {
	if a.registry == nil {
		return fmt.Errorf("speaker recognition is disabled")
	}

	id, err := strconv.ParseInt(idOrName, 10, 64)
	if err != nil {
		vp, ok := a.registry.FindByName(idOrName)
		if !ok {
			return fmt.Errorf("no speaker named %q", idOrName)
		}
		id = vp.ID
	}

	if err := a.registry.Remove(id); err != nil {
		return fmt.Errorf("delete speaker: %w", err)
	}
	fmt.Printf("✓ Speaker %s deleted\n", idOrName)
	return nil
}
