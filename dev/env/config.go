package devenv

// MoodleTestConfig is read from `dev/.state/moodle_config.json5` by tests
// that talk to a real portal.
type MoodleTestConfig struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	// ExpectCourse is a course name the account is known to have a grade in.
	ExpectCourse string `json:"expect_course"`
}

const MOODLE_TEST_CONFIG = "moodle_config.json5"
