package chat

// Step is the guided-conversation position. Only option selections move it;
// free text never does.
type Step string

const (
	StepInitial             Step = "initial"
	StepEligibilityBoard    Step = "eligibility_board"
	StepStateBoardInquiry   Step = "state_board_inquiry"
	StepEligibilitySubjects Step = "eligibility_subjects"
	StepEligibilityCourses  Step = "eligibility_courses"
	StepExploreColleges     Step = "explore_colleges"
)

func (s Step) Valid() bool {
	switch s {
	case StepInitial, StepEligibilityBoard, StepStateBoardInquiry,
		StepEligibilitySubjects, StepEligibilityCourses, StepExploreColleges:
		return true
	default:
		return false
	}
}

func (s Step) String() string { return string(s) }
