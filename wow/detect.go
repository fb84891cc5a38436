// Package wow detects the "wow" easter egg in terminal output and tracks wow mode.
package wow

import (
	"regexp"
	"strings"
)

// Token is the command whose failure toggles wow mode
const Token = "wow"

// notFoundPatterns match a shell reporting that the wow command does not exist
var notFoundPatterns = []*regexp.Regexp{
	// bash: "bash: wow: command not found"
	regexp.MustCompile(`(?m)\bwow: command not found`),
	// zsh: "zsh: command not found: wow"
	regexp.MustCompile(`(?m)command not found: wow\b`),
	// fish: "fish: Unknown command: wow" and "fish: Unknown command 'wow'"
	regexp.MustCompile(`(?mi)unknown command:? '?wow\b`),
	// cmd.exe: "'wow' is not recognized as an internal or external command"
	regexp.MustCompile(`(?mi)'wow' is not recognized as an internal or external command`),
	// PowerShell: "The term 'wow' is not recognized as the name of a cmdlet" (also "as a name of")
	regexp.MustCompile(`(?mi)the term 'wow' is not recognized as (the|a) name of a cmdlet`),
	// Korean bash: "bash: wow: 명령을 찾을 수 없습니다" (also "명령어를")
	regexp.MustCompile(`(?m)\bwow: 명령(어를|을) 찾을 수 없습니다`),
	// Korean zsh: "zsh: 명령을 찾을 수 없습니다: wow"
	regexp.MustCompile(`(?m)찾을 수 없습니다: wow\b`),
	// Korean cmd.exe: "'wow'은(는) 내부 또는 외부 명령, 실행할 수 있는 프로그램, 또는 배치 파일이 아닙니다."
	regexp.MustCompile(`'wow'은\(는\) 내부 또는 외부 명령`),
}

// Match reports whether output contains a failed wow command from a supported shell
func Match(output string) bool {
	if !strings.Contains(strings.ToLower(output), Token) {
		return false
	}
	for _, re := range notFoundPatterns {
		if re.MatchString(output) {
			return true
		}
	}
	return false
}
