//go:build integration && unix

package supervisor_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tessro/devsup/internal/logbuf"
	"github.com/tessro/devsup/internal/supervisor"
)

// wire forwards output events into buf the way a caller does and records
// lifecycle event types in order.
func wire(sup *supervisor.Supervisor, buf *logbuf.Buffer) func() []supervisor.EventType {
	var mu sync.Mutex
	var types []supervisor.EventType
	sup.OnEvent(func(ev supervisor.Event) {
		mu.Lock()
		types = append(types, ev.Type)
		mu.Unlock()
		switch ev.Type {
		case supervisor.EventStdout:
			buf.Append(logbuf.Stdout, ev.Text)
		case supervisor.EventStderr:
			buf.Append(logbuf.Stderr, ev.Text)
		}
	})
	return func() []supervisor.EventType {
		mu.Lock()
		defer mu.Unlock()
		return append([]supervisor.EventType(nil), types...)
	}
}

var _ = Describe("Supervisor feeding a log buffer", func() {
	var (
		tmpDir string
		buf    *logbuf.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "devsup-integration-*")
		Expect(err).NotTo(HaveOccurred())
		buf = logbuf.New(logbuf.Options{MaxEntries: 100, FilePath: filepath.Join(tmpDir, "logs", "dev.log")})
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Context("when the process prints and exits", func() {
		It("buffers every line and ends with exit", func() {
			sup := supervisor.New(supervisor.Spec{
				Command: "sh",
				Args:    []string{"-c", `for i in 1 2 3; do echo out$i; echo err$i >&2; done`},
			}, supervisor.Options{})
			types := wire(sup, buf)

			Expect(sup.Start()).To(Succeed())
			Eventually(sup.Done(), 5*time.Second).Should(BeClosed())

			Expect(buf.Stats().StdoutCount).To(Equal(3))
			Expect(buf.Stats().StderrCount).To(Equal(3))
			Expect(types()[0]).To(Equal(supervisor.EventStart))
			Expect(types()[len(types())-1]).To(Equal(supervisor.EventExit))

			mirrored, err := logbuf.ReadMirrorFile(buf.FilePath())
			Expect(err).NotTo(HaveOccurred())
			Expect(mirrored).To(Equal(buf.Entries()))
		})
	})

	Context("when stopped concurrently", func() {
		It("signals once and resolves both callers", func() {
			var signals int32
			var mu sync.Mutex
			sup := supervisor.New(supervisor.Spec{Command: "sleep", Args: []string{"30"}}, supervisor.Options{
				Signal: func(pid int, sig syscall.Signal) error {
					mu.Lock()
					signals++
					mu.Unlock()
					return syscall.Kill(-pid, sig)
				},
			})
			Expect(sup.Start()).To(Succeed())

			var wg sync.WaitGroup
			for i := 0; i < 3; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					Expect(sup.Stop(context.Background(), syscall.SIGTERM)).To(Succeed())
				}()
			}
			wg.Wait()

			mu.Lock()
			Expect(signals).To(Equal(int32(1)))
			mu.Unlock()
			Expect(sup.IsRunning()).To(BeFalse())
			_, ok := sup.PID()
			Expect(ok).To(BeFalse())
		})
	})

	Context("when the command does not exist", func() {
		It("fails without an exit event", func() {
			sup := supervisor.New(supervisor.Spec{Command: "doesNotExist12345"}, supervisor.Options{})
			types := wire(sup, buf)

			err := sup.Start()
			Expect(err).To(HaveOccurred())
			var spawnErr *supervisor.SpawnError
			Expect(err).To(BeAssignableToTypeOf(spawnErr))
			Consistently(types, 200*time.Millisecond).Should(Equal([]supervisor.EventType{supervisor.EventError}))
		})
	})

	Context("when the guard fires", func() {
		It("kills the whole process group", func() {
			sup := supervisor.New(supervisor.Spec{
				Command: "sh",
				Args:    []string{"-c", `sleep 30 & echo child $!; wait`},
			}, supervisor.Options{})
			wire(sup, buf)
			Expect(sup.Start()).To(Succeed())
			Eventually(func() int { return buf.Len() }, 5*time.Second).Should(Equal(1))

			guard := supervisor.NewGuard()
			guard.Add(sup)
			guard.Fire()

			Eventually(sup.Done(), 5*time.Second).Should(BeClosed())
			exit, ok := sup.LastExit()
			Expect(ok).To(BeTrue())
			Expect(exit.Signal).To(Equal("SIGKILL"))
		})
	})
})
