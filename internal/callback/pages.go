package callback

import "fmt"

// Bilingual result pages. The browser-side script picks the language; the
// error diagnostic is already escaped by the caller.

const successPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Authorization Successful / 授权成功</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
           display: flex; justify-content: center; align-items: center; min-height: 100vh;
           margin: 0; background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); }
    .container { background: white; padding: 40px 60px; border-radius: 16px;
                 box-shadow: 0 10px 40px rgba(0,0,0,0.2); text-align: center; }
    .icon { font-size: 64px; margin-bottom: 20px; }
    .close-hint { color: #999; font-size: 14px; }
    .lang-zh { display: none; }
  </style>
</head>
<body>
  <div class="container">
    <div class="icon">✅</div>
    <h1 class="lang-en">Authorization Successful!</h1>
    <h1 class="lang-zh">授权成功！</h1>
    <p class="lang-en">You have granted document access to the bot.</p>
    <p class="lang-zh">你已授权机器人访问你的文档。</p>
    <p class="close-hint lang-en">You can close this window and return to the chat.</p>
    <p class="close-hint lang-zh">你可以关闭此窗口并返回聊天。</p>
  </div>
  <script>
    const isZh = navigator.language.toLowerCase().startsWith('zh');
    document.querySelectorAll('.lang-en').forEach(el => el.style.display = isZh ? 'none' : 'block');
    document.querySelectorAll('.lang-zh').forEach(el => el.style.display = isZh ? 'block' : 'none');
    setTimeout(() => window.close(), 3000);
  </script>
</body>
</html>
`

const errorPageFormat = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Authorization Failed / 授权失败</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
           display: flex; justify-content: center; align-items: center; min-height: 100vh;
           margin: 0; background: linear-gradient(135deg, #ff6b6b 0%%, #ee5a5a 100%%); }
    .container { background: white; padding: 40px 60px; border-radius: 16px;
                 box-shadow: 0 10px 40px rgba(0,0,0,0.2); text-align: center; max-width: 500px; }
    .icon { font-size: 64px; margin-bottom: 20px; }
    .error { background: #fff3f3; border: 1px solid #ffcdd2; border-radius: 8px; padding: 12px;
             color: #c62828; font-family: monospace; font-size: 14px; word-break: break-word; }
    .lang-zh { display: none; }
  </style>
</head>
<body>
  <div class="container">
    <div class="icon">❌</div>
    <h1 class="lang-en">Authorization Failed</h1>
    <h1 class="lang-zh">授权失败</h1>
    <p class="lang-en">Something went wrong during authorization.</p>
    <p class="lang-zh">授权过程中出现错误。</p>
    <div class="error">%s</div>
    <p class="lang-en">Please try again or contact support.</p>
    <p class="lang-zh">请重试或联系管理员。</p>
  </div>
  <script>
    const isZh = navigator.language.toLowerCase().startsWith('zh');
    document.querySelectorAll('.lang-en').forEach(el => el.style.display = isZh ? 'none' : 'block');
    document.querySelectorAll('.lang-zh').forEach(el => el.style.display = isZh ? 'block' : 'none');
  </script>
</body>
</html>
`

// errorPage renders the failure page around an already-escaped diagnostic.
func errorPage(escapedError string) string {
	return fmt.Sprintf(errorPageFormat, escapedError)
}
