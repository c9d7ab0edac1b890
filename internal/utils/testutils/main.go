package testutils

// Secret is a 16 character encryption secret shared by tests.
const Secret = "0123456789101112"
