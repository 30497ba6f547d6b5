package chat

import (
	"fmt"
	"strconv"
)

const (
	WelcomeMessageID = "welcome-message"
	EndMessageID     = "end-chat-message"

	WelcomeText = "Welcome to DU Desk AI Chat Assistant! How can I assist you today? Here are some options:"

	// FooterText is shown under the transcript once the user has said anything.
	FooterText = "Thank you! Let me know if you have any other queries regarding CUET (UG) or if I made a mistake."

	// WelcomePrefix is prepended to the first assistant message on display.
	WelcomePrefix = "Hello. "

	HomePageURL = "https://dudesk.in"
)

const (
	OptionCheckEligibility = "Check Eligibility"
	OptionExploreColleges  = "Explore Colleges"

	BoardCBSE  = "CBSE"
	BoardICSE  = "ICSE"
	BoardState = "State Board"
)

var (
	InitialOptions = []string{OptionCheckEligibility, OptionExploreColleges}
	Boards         = []string{BoardCBSE, BoardICSE, BoardState}
	SubjectCounts  = []int{5, 6}
)

type scripted struct {
	reply string
	next  Step
}

var optionScript = map[string]scripted{
	OptionCheckEligibility: {"From which board have you attempted your 12th exam?", StepEligibilityBoard},
	OptionExploreColleges:  {"Enter the courses to find the colleges that offer them.", StepExploreColleges},
}

var boardScript = map[string]scripted{
	BoardCBSE:  {"How many subjects did you study in Class 12? (5 or 6)", StepEligibilitySubjects},
	BoardICSE:  {"How many subjects did you study in Class 12? (5 or 6)", StepEligibilitySubjects},
	BoardState: {"Which state board do you belong to? Please specify your state board (e.g., Maharashtra State Board, Tamil Nadu State Board, etc.).", StepStateBoardInquiry},
}

var subjectCountScript = map[int]scripted{
	5: {"Please enter the subjects you studied in Class 12.", StepEligibilityCourses},
	6: {"Please enter the subjects you studied in Class 12.", StepEligibilityCourses},
}

func WelcomeMessage() Message {
	return Message{ID: WelcomeMessageID, Role: RoleAssistant, Content: WelcomeText}
}

// EndText is the closing message carrying the frozen mm:ss duration.
func EndText(elapsed string) string {
	return fmt.Sprintf("Thank you for using DU Desk AI Chat Assistant! Your chat duration was %s. Go Back to the Home Page %s", elapsed, HomePageURL)
}

func subjectCountLabels() []string {
	out := make([]string, 0, len(SubjectCounts))
	for _, n := range SubjectCounts {
		out = append(out, strconv.Itoa(n))
	}
	return out
}
