package ssh

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"DRFashion-Sync/internal/connection"
	"DRFashion-Sync/internal/logger"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// connectSSH establishes an SSH client connection
func connectSSH(config connection.SSHConfig) (*ssh.Client, error) {
	authMethods := []ssh.AuthMethod{}

	if config.KeyPath != "" {
		key, err := os.ReadFile(config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("读取 SSH 私钥失败：%w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("解析 SSH 私钥失败：%w", err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	if config.Password != "" {
		authMethods = append(authMethods, ssh.Password(config.Password))
	}
	if len(authMethods) == 0 {
		return nil, fmt.Errorf("ssh: no auth method configured for %s@%s", config.User, config.Host)
	}

	port := config.Port
	if port <= 0 {
		port = 22
	}

	hostKeyCallback, err := hostKeyCallback(config)
	if err != nil {
		return nil, err
	}

	sshConfig := &ssh.ClientConfig{
		User:            config.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         10 * time.Second,
	}

	addr := net.JoinHostPort(config.Host, strconv.Itoa(port))
	return ssh.Dial("tcp", addr, sshConfig)
}

func hostKeyCallback(config connection.SSHConfig) (ssh.HostKeyCallback, error) {
	path := strings.TrimSpace(config.KnownHostsPath)
	if path == "" {
		logger.Warnf("SSH 未配置 known_hosts，将不校验主机密钥：%s", config.Host)
		return ssh.InsecureIgnoreHostKey(), nil
	}
	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("读取 known_hosts 失败：%w", err)
	}
	return callback, nil
}

// RegisterSSHNetwork registers a unique MySQL network name that dials through
// an SSH tunnel. Returns the network name to use in the DSN.
func RegisterSSHNetwork(sshConfig connection.SSHConfig) (string, error) {
	client, err := connectSSH(sshConfig)
	if err != nil {
		return "", err
	}

	netName := fmt.Sprintf("ssh_%s_%d", sshConfig.Host, time.Now().UnixNano())

	mysql.RegisterDialContext(netName, func(ctx context.Context, addr string) (net.Conn, error) {
		return client.Dial("tcp", addr)
	})

	return netName, nil
}

// LocalForwarder listens on a loopback port and forwards every accepted
// connection to remoteAddr through an SSH client.
type LocalForwarder struct {
	LocalAddr  string
	remoteAddr string
	client     *ssh.Client
	listener   net.Listener

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewLocalForwarder opens the SSH connection and starts accepting on 127.0.0.1.
func NewLocalForwarder(sshConfig connection.SSHConfig, remoteHost string, remotePort int) (*LocalForwarder, error) {
	client, err := connectSSH(sshConfig)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("监听本地端口失败：%w", err)
	}

	f := &LocalForwarder{
		LocalAddr:  listener.Addr().String(),
		remoteAddr: net.JoinHostPort(remoteHost, strconv.Itoa(remotePort)),
		client:     client,
		listener:   listener,
	}
	f.wg.Add(1)
	go f.acceptLoop()
	return f, nil
}

func (f *LocalForwarder) acceptLoop() {
	defer f.wg.Done()
	for {
		local, err := f.listener.Accept()
		if err != nil {
			return
		}
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			f.forward(local)
		}()
	}
}

func (f *LocalForwarder) forward(local net.Conn) {
	defer local.Close()

	remote, err := f.client.Dial("tcp", f.remoteAddr)
	if err != nil {
		logger.Warnf("SSH 隧道转发失败：%s -> %s，原因：%v", f.LocalAddr, f.remoteAddr, err)
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(local, remote)
		done <- struct{}{}
	}()
	<-done
}

// Close stops accepting, closes the SSH client and waits for open forwards.
func (f *LocalForwarder) Close() error {
	var err error
	f.closeOnce.Do(func() {
		err = f.listener.Close()
		if cerr := f.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
		f.wg.Wait()
	})
	return err
}
