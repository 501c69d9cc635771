package archiveapi

import (
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"

	"github.com/nwp-consumer/core/ncerr"
)

// sftpClient fetches files from an SFTP/SSH-reachable order-based archive
// by executing a remote cat over an SSH session, grounded on the
// network package's SshExec convention (key-based auth, session,
// CombinedOutput) rather than a separate SFTP protocol dependency.
type sftpClient struct {
	addr string
	cfg  *ssh.ClientConfig
}

func newSFTPClient(repo, addr, user, keyPEM string) (*sftpClient, error) {
	signer, err := ssh.ParsePrivateKey([]byte(keyPEM))
	if err != nil {
		return nil, &ncerr.ConfigError{Repo: repo, Msg: "invalid SSH private key: " + err.Error()}
	}
	return &sftpClient{
		addr: addr,
		cfg: &ssh.ClientConfig{
			User:            user,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: ssh.InsecureIgnoreHostKey(), // order-based archive hosts rarely publish host keys for automation
		},
	}, nil
}

func (c *sftpClient) fetch(remotePath, localPath string) error {
	client, err := ssh.Dial("tcp", c.addr, c.cfg)
	if err != nil {
		return &ncerr.NetworkError{URL: c.addr, Transient: true, Cause: err}
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return &ncerr.NetworkError{URL: c.addr, Transient: true, Cause: err}
	}
	defer session.Close()

	out, err := session.Output(fmt.Sprintf("cat %q", remotePath))
	if err != nil {
		return &ncerr.NetworkError{URL: remotePath, Transient: false, Cause: err}
	}
	if err := os.WriteFile(localPath, out, 0o644); err != nil {
		return &ncerr.IOError{Op: "sftp_fetch", Path: localPath, Cause: err}
	}
	return nil
}
