//go:build integration && unix

package supervisor_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSupervisorIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Supervisor Integration Suite")
}
