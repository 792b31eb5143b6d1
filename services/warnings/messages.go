package warnings

// WarningSeparator joins active warnings in verbose mode. UIs render it as a
// horizontal rule, so it must not change.
const WarningSeparator = "<hr />"

const (
	msgPreRelease = "This is a pre-release test build - use at your own risk - do not use for mining or merchant applications"

	msgLargeWorkFork = "Warning: The network does not appear to fully agree! Some miners appear to be experiencing issues."

	msgLargeWorkInvalidChain = "Warning: We do not appear to fully agree with our peers! You may need to upgrade, or other nodes may need to upgrade."
)

// TranslatableMessages lists the fixed messages the registry may emit through
// its translator, for loading into a catalog.
func TranslatableMessages() []string {
	return []string{
		msgPreRelease,
		msgLargeWorkFork,
		msgLargeWorkInvalidChain,
	}
}
