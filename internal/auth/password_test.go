package auth_test

import (
	"bytes"
	"crypto/sha1"

	"github.com/frahmantamala/safety-hazards/internal/auth"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/pbkdf2"
)

var _ = ginkgo.Describe("Hasher", func() {
	var hasher *auth.Hasher

	ginkgo.BeforeEach(func() {
		var err error
		hasher, err = auth.NewHasher("")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
	})

	ginkgo.It("defaults to PBKDF2-SHA1", func() {
		gomega.Expect(hasher.Algorithm()).To(gomega.Equal(auth.AlgorithmPBKDF2SHA1))
	})

	ginkgo.It("rejects unsupported algorithms", func() {
		_, err := auth.NewHasher("MD5")
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.Describe("Hash", func() {
		ginkgo.It("hashes the empty string like any other password", func() {
			cred, err := hasher.Hash("", auth.MinIterations)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(cred.Hash).To(gomega.HaveLen(32))
			gomega.Expect(hasher.VerifyCredential("", cred)).To(gomega.BeTrue())
			gomega.Expect(hasher.VerifyCredential(" ", cred)).To(gomega.BeFalse())
		})

		ginkgo.It("produces a 16-byte salt and a 32-byte hash", func() {
			cred, err := hasher.Hash("hunter2", auth.MinIterations)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(cred.Salt).To(gomega.HaveLen(16))
			gomega.Expect(cred.Hash).To(gomega.HaveLen(32))
			gomega.Expect(cred.Algorithm).To(gomega.Equal(auth.AlgorithmPBKDF2SHA1))
		})

		ginkgo.It("raises low iteration counts to the minimum", func() {
			cred, err := hasher.Hash("hunter2", 1)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(cred.Iterations).To(gomega.Equal(auth.MinIterations))
		})

		ginkgo.It("uses a fresh salt every time", func() {
			a, _ := hasher.Hash("same", auth.MinIterations)
			b, _ := hasher.Hash("same", auth.MinIterations)
			gomega.Expect(bytes.Equal(a.Salt, b.Salt)).To(gomega.BeFalse())
			gomega.Expect(bytes.Equal(a.Hash, b.Hash)).To(gomega.BeFalse())
		})

		ginkgo.It("is standard PBKDF2 so existing digests keep verifying", func() {
			cred, err := hasher.Hash("legacy", auth.MinIterations)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			want := pbkdf2.Key([]byte("legacy"), cred.Salt, auth.MinIterations, 32, sha1.New)
			gomega.Expect(cred.Hash).To(gomega.Equal(want))
		})
	})

	ginkgo.Describe("Verify", func() {
		var cred auth.PasswordCredential

		ginkgo.BeforeEach(func() {
			var err error
			cred, err = hasher.Hash("correct horse", auth.MinIterations)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("accepts the right password", func() {
			gomega.Expect(hasher.Verify("correct horse", cred.Salt, cred.Hash, cred.Iterations)).To(gomega.BeTrue())
			gomega.Expect(hasher.VerifyCredential("correct horse", cred)).To(gomega.BeTrue())
		})

		ginkgo.It("rejects a wrong password", func() {
			gomega.Expect(hasher.Verify("battery staple", cred.Salt, cred.Hash, cred.Iterations)).To(gomega.BeFalse())
		})

		ginkgo.It("rejects when a single byte of the hash differs", func() {
			tampered := append([]byte(nil), cred.Hash...)
			tampered[len(tampered)-1] ^= 0x01
			gomega.Expect(hasher.Verify("correct horse", cred.Salt, tampered, cred.Iterations)).To(gomega.BeFalse())
		})

		ginkgo.It("returns false for malformed input", func() {
			gomega.Expect(hasher.Verify("correct horse", nil, cred.Hash, cred.Iterations)).To(gomega.BeFalse())
			gomega.Expect(hasher.Verify("correct horse", cred.Salt, nil, cred.Iterations)).To(gomega.BeFalse())
			gomega.Expect(hasher.Verify("correct horse", cred.Salt, cred.Hash, 0)).To(gomega.BeFalse())
			gomega.Expect(hasher.Verify("correct horse", cred.Salt, cred.Hash, -5)).To(gomega.BeFalse())
		})

		ginkgo.It("rejects a different iteration count", func() {
			gomega.Expect(hasher.Verify("correct horse", cred.Salt, cred.Hash, cred.Iterations+1)).To(gomega.BeFalse())
		})

		ginkgo.It("dispatches on the stored algorithm", func() {
			sha256Hasher, err := auth.NewHasher(auth.AlgorithmPBKDF2SHA256)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			stored, err := sha256Hasher.Hash("correct horse", auth.MinIterations)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(hasher.VerifyCredential("correct horse", stored)).To(gomega.BeTrue())

			stored.Algorithm = "bcrypt"
			gomega.Expect(hasher.VerifyCredential("correct horse", stored)).To(gomega.BeFalse())
		})
	})
})
